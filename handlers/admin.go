package handlers

import (
	"school-fees/db"

	"github.com/gofiber/fiber/v2"
)

// ResetDatabaseHandler handles POST /admin/reset-db
// WARNING: This drops all tables and re-runs migrations
func ResetDatabaseHandler(c *fiber.Ctx) error {
	if err := db.ResetDatabase(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to reset database",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Database reset successfully",
		"status":  "All tables dropped and migrations re-run",
	})
}
