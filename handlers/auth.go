package handlers

import (
	"context"
	"os"
	"school-fees/db"
	"school-fees/middleware"
	"school-fees/models"
	"school-fees/utils"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// createAccount inserts a new user with a hashed password and returns its id.
func createAccount(ctx context.Context, username, passwordHash string) (int, error) {
	var id int
	query := `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id
	`
	err := db.Pool.QueryRow(ctx, query, username, passwordHash).Scan(&id)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return 0, models.ErrDuplicateUsername
		}
		return 0, err
	}
	return id, nil
}

// verifyCredentials returns the matching user, or nil when the username is
// unknown or the password does not match. The two cases are indistinguishable
// to the caller.
func verifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`
	err := db.Pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, nil
	}
	return &user, nil
}

func sessionTTL() time.Duration {
	if hours, err := strconv.Atoi(os.Getenv("SESSION_TTL_HOURS")); err == nil && hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	return 24 * time.Hour
}

// SignupPage handles GET /signup
func SignupPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "signup", "message": utils.PopFlash(c)})
}

// Signup handles POST /signup
func Signup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		utils.SetFlash(c, "Username and password are required.")
		return c.Redirect("/signup", fiber.StatusFound)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)

	if err := models.Validate(req); err != nil {
		utils.SetFlash(c, "Username and password are required.")
		return c.Redirect("/signup", fiber.StatusFound)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := createAccount(ctx, req.Username, hash); err != nil {
		if err == models.ErrDuplicateUsername {
			utils.SetFlash(c, "Username already exists.")
			return c.Redirect("/signup", fiber.StatusFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	utils.SetFlash(c, "Account created successfully! Please log in.")
	return c.Redirect("/login", fiber.StatusFound)
}

// LoginPage handles GET /login
func LoginPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "login", "message": utils.PopFlash(c)})
}

// Login handles POST /login
func Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		utils.SetFlash(c, "Invalid username or password.")
		return c.Redirect("/login", fiber.StatusFound)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)

	if err := models.Validate(req); err != nil {
		utils.SetFlash(c, "Invalid username or password.")
		return c.Redirect("/login", fiber.StatusFound)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	user, err := verifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to log in"})
	}
	if user == nil {
		utils.SetFlash(c, "Invalid username or password.")
		return c.Redirect("/login", fiber.StatusFound)
	}

	token := uuid.NewString()
	ttl := sessionTTL()
	query := `
		INSERT INTO sessions (session_token, user_id, username, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
	`
	if _, err := db.Pool.Exec(ctx, query, token, user.ID, user.Username, time.Now().Add(ttl)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to log in"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
	})

	return c.Redirect("/", fiber.StatusFound)
}

// Logout handles GET /logout
func Logout(c *fiber.Ctx) error {
	if token := c.Cookies(middleware.SessionCookie); token != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		// Best effort; an orphaned row expires anyway
		db.Pool.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, token)
	}
	middleware.ClearSessionCookie(c)
	return c.Redirect("/login", fiber.StatusFound)
}
