package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"movie-manager/internal/config"
	"movie-manager/internal/database"
	"movie-manager/internal/form"
	"movie-manager/internal/handler"
	"movie-manager/internal/middleware"
	"movie-manager/internal/repository"
	"movie-manager/internal/search"
	"movie-manager/internal/service"
	"movie-manager/internal/tmdb"
	"movie-manager/internal/view"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	for _, w := range cfg.Warnings() {
		slog.Warn(w)
	}

	// Connect to Redis (non-fatal if unavailable)
	rdb, err := database.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without rate limiting", "error", err)
	}

	// Initialize TMDB client
	tmdbClient := tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL)

	// Initialize layers
	repo := repository.NewMovieRepository()
	svc := service.NewMovieService(repo, tmdbClient, cfg.SimulatedLatency)
	searchCtl := search.NewController(svc, cfg.SearchDebounce)
	formCtl := form.NewController(svc)

	renderer, err := view.NewRenderer()
	if err != nil {
		slog.Error("failed to load page template", "error", err)
		os.Exit(1)
	}
	h := handler.NewMovieHandler(svc, searchCtl, formCtl, view.NewBuilder(cfg.TMDB.ImageBaseURL), renderer)

	// Create Fiber app
	app := handler.NewApp()

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterDocs(app, swaggerYAML)
	}

	// Routes, rate limited when Redis is up
	var guard fiber.Handler
	if rdb != nil && cfg.RateLimit.Max > 0 && cfg.RateLimit.WindowSeconds > 0 {
		guard = middleware.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.WindowSeconds).Handler()
	}
	h.Mount(app, guard)

	// First page of popular movies
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := searchCtl.Mount(ctx); err != nil {
			slog.Warn("initial popular movies load failed", "error", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down movie manager...")
		searchCtl.Close()
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting movie manager", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("error closing Redis connection", "error", err)
		}
	}
}
