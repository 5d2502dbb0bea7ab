package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/api"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/auth"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/cache"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/config"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/database"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/face"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/metrics"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/provider"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/repository"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment, config.WithLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	logger.Info("starting FaceRatio API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("profile", cfg.ScoringProfile),
		slog.String("provider", cfg.ProviderType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	detector, err := face.NewLandmarkDetector(cfg)
	if err != nil {
		return fmt.Errorf("failed to create landmark detector: %w", err)
	}
	if hc, ok := detector.(provider.HealthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			// the detector may come up after us; requests fail with DETECTOR_UNAVAILABLE until then
			logger.Warn("landmark detector not reachable", slog.String("error", err.Error()))
		}
	}

	engine, err := scoring.NewEngine(cfg.Profile())
	if err != nil {
		return err
	}

	pgCache := cache.NewPGCache(pool)
	analyses := service.NewAnalysisService(
		repository.NewAnalysisRepository(pool),
		detector,
		quality.NewAnalyzer(quality.WithMaxPixels(cfg.MaxImagePixels)),
		engine,
		logger,
	).
		WithCache(cache.NewAnalysisCache(pgCache, cfg.CacheTTL)).
		WithAudit(audit.NewSlogLogger(logger)).
		WithDetectTimeout(cfg.DetectTimeout)

	janitor := cache.NewJanitor(pgCache, cfg.CacheCleanupInterval, logger)
	janitor.Start()
	defer janitor.Stop()

	deps := &api.Dependencies{
		Analyses:     analyses,
		Stats:        metrics.NewRepository(pool),
		Live:         engine,
		DB:           pool,
		Profile:      string(engine.Profile()),
		DetectorName: detector.Name(),
		RateLimitMax: cfg.RateLimitMax,
		MaxImageSize: cfg.MaxImageSize,
	}
	if cfg.AuthEnabled() {
		deps.Tokens = auth.NewTokenService(cfg.AuthSecret, cfg.AuthIssuer, cfg.AuthTokenTTL)
	} else {
		logger.Warn("AUTH_SECRET not set, /v1 is open to anyone who can reach it")
	}
	if cfg.RateLimitStore == "postgres" {
		counters := ratelimit.NewStore(pool)
		deps.RateLimitStore = counters

		counterJanitor := cache.NewJanitor(counters, cfg.CacheCleanupInterval, logger)
		counterJanitor.Start()
		defer counterJanitor.Stop()
	}

	router := api.NewRouter(logger, deps)
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	janitor.Stop()

	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

func migrate(ctx context.Context, dsn string, logger *slog.Logger) error {
	dbName, err := database.DatabaseName(dsn)
	if err != nil {
		return err
	}

	db, err := database.OpenSQL(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, dbName, logger)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return err
	}
	logger.Info("migrations applied", slog.String("database", dbName))
	return nil
}
