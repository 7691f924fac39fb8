package handlers

import (
	"os"

	"github.com/gofiber/fiber/v2"
	qrcode "github.com/skip2/go-qrcode"
)

// QRCode handles GET /qr. It returns a PNG encoding the application URL, for
// printing on fee notices.
func QRCode(c *fiber.Ctx) error {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}

	png, err := qrcode.Encode(appURL, qrcode.Medium, 256)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate QR code"})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
