package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"takeoff-api/internal/analysis/handlers"
	"takeoff-api/internal/common/config"
	"takeoff-api/internal/common/middleware"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Analysis Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3002"
	}

	analyzeHandler := handlers.NewAnalyzeHandler(cfg.AIEndpoint, cfg.AIAPIKey)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Analysis Service",
		BodyLimit:    64 * 1024 * 1024, // страницы планов — крупные PNG
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())

	// ============================================================
	// Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Post("/analyze", analyzeHandler.Analyze)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Analysis Service on %s (env: %s)", addr, cfg.Environment)
	if cfg.AIEndpoint == "" {
		log.Printf("AI_ENDPOINT is not set, /analyze will return 503")
	}

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
