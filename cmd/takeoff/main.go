package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"takeoff-api/internal/analysis/client"
	"takeoff-api/internal/common/config"
	"takeoff-api/internal/common/middleware"
	"takeoff-api/internal/takeoff/aggregate"
	"takeoff-api/internal/takeoff/handlers"
	"takeoff-api/internal/takeoff/measure"
	"takeoff-api/internal/takeoff/repository"
	"takeoff-api/internal/takeoff/scale"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Takeoff Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3001"
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer cleanup()

	settings := scale.NewSettings(store)
	reconciler := measure.NewReconciler(store)
	aggregator := aggregate.New(store)
	analysisClient := client.New(cfg.AnalysisURL)

	scaleHandler := handlers.NewScaleHandler(settings)
	measurementsHandler := handlers.NewMeasurementsHandler(reconciler, settings)
	takeoffHandler := handlers.NewTakeoffHandler(aggregator, store, analysisClient)
	jobsHandler := handlers.NewJobsHandler(store)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Takeoff Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Scale Routes
	// ============================================================

	app.Get("/documents/:id/pages/:page/scale", scaleHandler.GetScale)
	app.Put("/documents/:id/pages/:page/scale", scaleHandler.SetScale)
	app.Post("/documents/:id/scale/apply-all", scaleHandler.ApplyToAll)

	// ============================================================
	// Measurement Routes
	// ============================================================

	app.Get("/documents/:id/measurements", measurementsHandler.List)
	app.Post("/documents/:id/measurements/sync", measurementsHandler.Sync)
	app.Delete("/documents/:id/measurements/:mid", measurementsHandler.Delete)

	// ============================================================
	// Takeoff Routes
	// ============================================================

	app.Post("/jobs", jobsHandler.CreateJob)
	app.Post("/jobs/:id/plans", jobsHandler.CreatePlan)
	app.Get("/jobs/:id/plans", jobsHandler.ListPlans)
	app.Get("/jobs/:id/takeoff", takeoffHandler.GetTakeoff)
	app.Put("/jobs/:id/takeoff/items/:itemID", takeoffHandler.EditItem)
	app.Post("/plans/:id/analyze", takeoffHandler.AnalyzePlan)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Takeoff Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// openStore выбирает бэкенд: postgres при заданном DATABASE_URL,
// иначе sqlite.
func openStore(cfg *config.Config) (repository.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := repository.OpenPostgres(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgres(pool)
		if err := store.Init(context.Background()); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Printf("Using postgres store")
		return store, pool.Close, nil
	}

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewSQLite(db)
	if err := store.Init("migrations/001_init.sql"); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Printf("Using sqlite store at %s", cfg.DBPath)
	return store, func() { db.Close() }, nil
}
