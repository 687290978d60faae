package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
	"github.com/chamodk/air-quality-fusion/internal/airquality/providers"
	"github.com/chamodk/air-quality-fusion/internal/alert"
	httpapi "github.com/chamodk/air-quality-fusion/internal/api/http"
	"github.com/chamodk/air-quality-fusion/internal/config"
	"github.com/chamodk/air-quality-fusion/internal/geo"
	"github.com/chamodk/air-quality-fusion/internal/location"
	"github.com/chamodk/air-quality-fusion/internal/notify"
	"github.com/chamodk/air-quality-fusion/internal/scheduler"
	"github.com/chamodk/air-quality-fusion/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// File-backed key-value store so cache, fetch state and alert history
	// survive restarts.
	kv, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open data directory: %v", err)
	}

	cache := store.NewCache(kv, cfg.CacheStaleAfter, cfg.HistoryRetention)
	state := store.NewStateStore(kv, cfg.FetchInterval)
	alerts := alert.NewStore(kv)

	// Location: fixed default coordinate, optionally geocoding a
	// configured city first.
	defaultFix := location.Fix{
		Coordinate: geo.Coordinate{
			Latitude:  cfg.DefaultLatitude,
			Longitude: cfg.DefaultLongitude,
		},
		Name: cfg.DefaultLocation,
	}

	var resolver location.Resolver
	if cfg.GeocoderAPIKey != "" && cfg.LocationCity != "" {
		resolver = location.NewFallbackResolver(
			location.NewGeocodeResolver(cfg.GeocoderAPIKey, cfg.LocationCity, cfg.LocationCountry),
			defaultFix,
		)
	} else {
		resolver = location.NewStaticResolver(defaultFix.Coordinate, defaultFix.Name)
	}

	// Scheduler orchestrating the periodic fetch/fuse/persist/alert cycle.
	sched := scheduler.New(scheduler.Deps{
		Resolver:    resolver,
		IQAir:       providers.NewIQAirClient(httpClient, cfg.IQAirAPIKey),
		OpenWeather: providers.NewOpenWeatherClient(httpClient, cfg.OpenWeatherAPIKey),
		WeatherAPI:  providers.NewWeatherAPIClient(httpClient, cfg.WeatherAPIKey),
		Engine:      airquality.NewEngine(),
		Cache:       cache,
		State:       state,
		Alerts:      alerts,
		Sink:        notify.LogSink{},
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-fusion",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "air-quality-fusion",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Cache:     cache,
		Scheduler: sched,
		Alerts:    alerts,
	})

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
