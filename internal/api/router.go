package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/database"
)

// multipart framing on top of the image itself
const bodyOverhead = 1 << 20

type Dependencies struct {
	Analyses     handler.AnalysisService
	Stats        handler.StatsSource
	Live         handler.LiveScorer
	DB           database.Pinger
	Profile      string
	DetectorName string
	RateLimitMax int
	MaxImageSize int

	// Tokens guards /v1 with bearer tokens; nil leaves it open
	Tokens middleware.TokenValidator

	// RateLimitStore shares counters between instances; nil counts in memory
	RateLimitStore middleware.Counter
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	if deps == nil {
		deps = &Dependencies{}
	}

	cfg := fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "FaceRatio API",
	}
	if deps.MaxImageSize > 0 {
		cfg.BodyLimit = deps.MaxImageSize + bodyOverhead
	}

	return &Router{
		app:    fiber.New(cfg),
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.DB, r.deps.Profile, r.deps.DetectorName)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Scoring routes need a service; health checks and docs are served regardless
	if r.deps.Analyses == nil {
		return
	}

	v1 := r.app.Group("/v1")

	if r.deps.Tokens != nil {
		v1.Use(middleware.Auth(r.deps.Tokens, r.logger))
	}

	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:   r.deps.RateLimitMax,
		Store: r.deps.RateLimitStore,
	})
	v1.Use(r.rateLimiter.Handler())

	analyses := handler.NewAnalysisHandler(r.deps.Analyses, r.logger, r.deps.MaxImageSize)

	v1.Post("/analyses", analyses.Analyze)
	v1.Post("/analyses/landmarks", analyses.AnalyzeLandmarks)
	v1.Get("/analyses", analyses.List)
	v1.Get("/analyses/:id", analyses.Get)
	v1.Delete("/analyses/:id", analyses.Delete)

	if r.deps.Stats != nil {
		v1.Get("/stats", handler.NewStatsHandler(r.deps.Stats).Summary)
	}

	if r.deps.Live != nil {
		live := handler.NewLiveHandler(r.deps.Live, r.logger)
		v1.Use("/live", live.Upgrade)
		v1.Get("/live", live.Stream())
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
	return r.app.Shutdown()
}
