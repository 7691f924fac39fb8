package main

import (
	"log"
	"os"
	"os/signal"
	"school-fees/db"
	"school-fees/handlers"
	"school-fees/middleware"
	"school-fees/scheduler"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Initialize database
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	databaseURL := os.Getenv("DATABASE_URL")
	if err := db.RunMigrations(databaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Purge expired sessions in the background
	scheduler.StartSessionSweeper()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: "School Fees Tracker",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "*",
	}))

	// Public routes
	app.Get("/signup", handlers.SignupPage)
	app.Post("/signup", handlers.Signup)
	app.Get("/login", handlers.LoginPage)
	app.Post("/login", handlers.Login)
	app.Get("/logout", handlers.Logout)
	app.Get("/qr", handlers.QRCode)

	// Session-gated routes
	app.Get("/", middleware.RequireSession, handlers.Dashboard)
	app.Post("/add", middleware.RequireSession, handlers.AddStudent)
	app.Post("/update/:student_id", middleware.RequireSession, handlers.UpdatePayment)
	app.Post("/admin/reset-db", middleware.RequireSession, handlers.ResetDatabaseHandler)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
