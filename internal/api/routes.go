// Package api provides the HTTP API for the Varhold server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api/handlers"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/auth"
	"github.com/varhold/varhold/internal/config"
	"github.com/varhold/varhold/internal/db"
	"github.com/varhold/varhold/internal/maintenance"
	"github.com/varhold/varhold/internal/metrics"
	"github.com/varhold/varhold/internal/storage"
	"github.com/varhold/varhold/internal/vars"
)

// Config holds configuration for the API router.
type Config struct {
	// Environment controls CORS strictness.
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// RedisURL enables a shared rate limit store when set.
	RedisURL string
	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		MaxBodyBytes:      5 << 20,
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies. reconciler
// may be nil when the storage backend cannot enumerate its blobs.
func NewRouter(
	cfg Config,
	database *db.DB,
	blobs storage.Backend,
	tokens *auth.TokenIssuer,
	reconciler *maintenance.Reconciler,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	m := metrics.New()

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment, logger))
	r.Engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	r.Engine.Use(m.Middleware())

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Public endpoints
	handlers.NewHealthHandler(database, blobs, logger).RegisterPublicRoutes(r.Engine)
	handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate).RegisterPublicRoutes(r.Engine)
	handlers.NewAuthHandler(database, tokens, logger).RegisterRoutes(r.Engine)
	r.Engine.GET("/metrics", m.Handler())

	// API v1 routes (auth required, metered per tier)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(database, tokens, logger))
	apiV1.Use(middleware.DailyQuota(database, logger))

	variableService := vars.NewService(database, blobs, logger).WithMetrics(m)
	if reconciler != nil {
		reconciler.WithMetrics(m)
	}
	handlers.NewVariablesHandler(variableService, database, logger).RegisterRoutes(apiV1)
	handlers.NewAPIKeysHandler(database, logger).RegisterRoutes(apiV1)
	handlers.NewUsersHandler(database, logger).RegisterRoutes(apiV1)
	handlers.NewUsageHandler(database, logger).RegisterRoutes(apiV1)

	tiersHandler := handlers.NewTiersHandler(database, logger)
	tiersHandler.RegisterRoutes(apiV1)

	// Admin routes
	admin := apiV1.Group("/admin")
	admin.Use(middleware.RequireAdmin())

	tiersHandler.RegisterAdminRoutes(admin)
	handlers.NewAdminUsersHandler(database, logger).RegisterRoutes(admin)

	var sweeper handlers.Sweeper
	if reconciler != nil {
		sweeper = reconciler
	}
	handlers.NewMaintenanceHandler(sweeper, logger).RegisterRoutes(admin)

	return r, nil
}
