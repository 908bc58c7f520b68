package main

import (
	"fmt"
	"log"
	"time"

	"takeoff-api/internal/common/config"
	"takeoff-api/internal/common/middleware"
	"takeoff-api/internal/gateway/handlers"
	"takeoff-api/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "API Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe)
	app.Get("/health/startup", handlers.StartupProbe)

	// ============================================================
	// Docs
	// ============================================================

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Plan Takeoff API v1",
			"status":  "ok",
		})
	})

	// ============================================================
	// Service Routes (Proxy)
	// ============================================================

	// Takeoff Service
	takeoffURL := cfg.TakeoffURL
	api.Get("/documents/:id/pages/:page/scale", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/documents/%s/pages/%s/scale", takeoffURL, c.Params("id"), c.Params("page")))
	})
	api.Put("/documents/:id/pages/:page/scale", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/documents/%s/pages/%s/scale", takeoffURL, c.Params("id"), c.Params("page")))
	})
	api.Post("/documents/:id/scale/apply-all", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/documents/%s/scale/apply-all", takeoffURL, c.Params("id")))
	})
	api.Get("/documents/:id/measurements", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/documents/%s/measurements?%s", takeoffURL, c.Params("id"), c.Request().URI().QueryString()))
	})
	api.Post("/documents/:id/measurements/sync", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/documents/%s/measurements/sync", takeoffURL, c.Params("id")))
	})
	api.Delete("/documents/:id/measurements/:mid", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/documents/%s/measurements/%s", takeoffURL, c.Params("id"), c.Params("mid")))
	})
	api.Post("/jobs", proxy.ProxyTo(takeoffURL+"/jobs"))
	api.Post("/jobs/:id/plans", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/jobs/%s/plans", takeoffURL, c.Params("id")))
	})
	api.Get("/jobs/:id/plans", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/jobs/%s/plans", takeoffURL, c.Params("id")))
	})
	api.Get("/jobs/:id/takeoff", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/jobs/%s/takeoff", takeoffURL, c.Params("id")))
	})
	api.Put("/jobs/:id/takeoff/items/:itemID", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/jobs/%s/takeoff/items/%s", takeoffURL, c.Params("id"), c.Params("itemID")))
	})
	api.Post("/plans/:id/analyze", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/plans/%s/analyze", takeoffURL, c.Params("id")))
	})

	// Analysis Service
	analysisURL := cfg.AnalysisURL
	api.Post("/analyze", proxy.ProxyTo(analysisURL+"/analyze"))

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting API Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying takeoff to %s, analysis to %s", takeoffURL, analysisURL)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
