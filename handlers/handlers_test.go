package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"school-fees/middleware"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests cover the request paths that resolve before any database
// access: auth redirects, input validation and the QR endpoint. Flows that
// touch the ledger live in ledger_integration_test.go.

func flashMessage(t *testing.T, cookies []*http.Cookie) string {
	t.Helper()
	for _, cookie := range cookies {
		if cookie.Name == "flash" {
			msg, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return msg
		}
	}
	return ""
}

func TestDashboardRedirectsWhenAnonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.RequireSession, Dashboard)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestAddStudentRedirectsWhenAnonymous(t *testing.T) {
	app := fiber.New()
	app.Post("/add", middleware.RequireSession, AddStudent)

	req := httptest.NewRequest("POST", "/add", strings.NewReader("name=Alice&class=10A&total_fees=1000&amount_paid=0"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestUpdatePaymentRedirectsWhenAnonymous(t *testing.T) {
	app := fiber.New()
	app.Post("/update/:student_id", middleware.RequireSession, UpdatePayment)

	req := httptest.NewRequest("POST", "/update/1", strings.NewReader("payment=100"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestSignupRejectsBlankInput(t *testing.T) {
	app := fiber.New()
	app.Post("/signup", Signup)

	req := httptest.NewRequest("POST", "/signup", strings.NewReader("username=+++&password="))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/signup", resp.Header.Get("Location"))
	assert.Equal(t, "Username and password are required.", flashMessage(t, resp.Cookies()))
}

func TestLoginRejectsBlankInput(t *testing.T) {
	app := fiber.New()
	app.Post("/login", Login)

	req := httptest.NewRequest("POST", "/login", strings.NewReader("username=&password="))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, "Invalid username or password.", flashMessage(t, resp.Cookies()))
}

func TestLoginPageShowsFlash(t *testing.T) {
	app := fiber.New()
	app.Get("/login", LoginPage)

	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(&http.Cookie{Name: "flash", Value: url.QueryEscape("Account created successfully! Please log in.")})

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Account created successfully! Please log in.")
}

func TestQRCodeReturnsPNG(t *testing.T) {
	app := fiber.New()
	app.Get("/qr", QRCode)

	resp, err := app.Test(httptest.NewRequest("GET", "/qr", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Greater(t, len(body), 8)
	assert.Equal(t, "\x89PNG\r\n\x1a\n", string(body[:8]))
}
