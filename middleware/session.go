package middleware

import (
	"context"
	"school-fees/db"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the session token cookie.
const SessionCookie = "session_token"

// RequireSession validates the session cookie against the sessions table.
// Unauthenticated browsers are redirected to the login page; the requested
// action is never performed.
func RequireSession(c *fiber.Ctx) error {
	token := c.Cookies(SessionCookie)
	if token == "" {
		return c.Redirect("/login", fiber.StatusFound)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var userID int
	var username string
	var expiresAt time.Time
	query := `
		SELECT user_id, username, expires_at
		FROM sessions
		WHERE session_token = $1
	`
	err := db.Pool.QueryRow(ctx, query, token).Scan(&userID, &username, &expiresAt)
	if err != nil {
		ClearSessionCookie(c)
		return c.Redirect("/login", fiber.StatusFound)
	}

	if time.Now().After(expiresAt) {
		// Best effort; the sweeper will catch it otherwise
		db.Pool.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, token)
		ClearSessionCookie(c)
		return c.Redirect("/login", fiber.StatusFound)
	}

	// Per-request identity for handlers, never read from ambient state
	c.Locals("user_id", userID)
	c.Locals("username", username)

	return c.Next()
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
}
