// Package main is the entrypoint for the Varhold server.
//
// @title           Varhold API
// @version         1.0
// @description     Varhold - tiered JSON variable storage for applications and teams.
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT or API key authentication. Use format: Bearer <token> or Bearer vh_xxx
//
// @tag.name Auth
// @tag.description Registration and login
// @tag.name Variables
// @tag.description JSON variable storage
// @tag.name API Keys
// @tag.description Programmatic access credentials
// @tag.name Admin
// @tag.description Tier and user administration
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api"
	"github.com/varhold/varhold/internal/auth"
	"github.com/varhold/varhold/internal/config"
	"github.com/varhold/varhold/internal/db"
	"github.com/varhold/varhold/internal/maintenance"
	"github.com/varhold/varhold/internal/storage"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting Varhold server")

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	if cfg.DatabaseURL == "" {
		logger.Error().Msg("DATABASE_URL environment variable is required")
		return 1
	}

	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	blobs, err := newStorageBackend(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize storage backend")
		return 1
	}
	logger.Info().Str("backend", string(cfg.StorageBackend)).Msg("Storage backend ready")

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize token issuer")
		return 1
	}

	// The reconciler needs a backend that can enumerate blobs.
	var reconciler *maintenance.Reconciler
	if lister, ok := blobs.(interface {
		storage.PathLister
		Delete(ctx context.Context, storagePath string) error
	}); ok {
		reconciler = maintenance.NewReconciler(database, lister, logger)
		if cfg.ReconcileSchedule != "" {
			scheduler, err := reconciler.Schedule(ctx, cfg.ReconcileSchedule)
			if err != nil {
				logger.Error().Err(err).Msg("Invalid RECONCILE_SCHEDULE")
				return 1
			}
			defer scheduler.Stop()
		}
	} else if cfg.ReconcileSchedule != "" {
		logger.Warn().Msg("RECONCILE_SCHEDULE set but storage backend cannot list blobs, sweep disabled")
	}

	router, err := api.NewRouter(api.Config{
		Environment:       cfg.Environment,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitPeriod:   cfg.RateLimitPeriod,
		RedisURL:          cfg.RedisURL,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		Version:           Version,
		Commit:            Commit,
		BuildDate:         BuildDate,
	}, database, blobs, tokens, reconciler, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build router")
		return 1
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			return 1
		}
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		return 1
	}

	logger.Info().Msg("Server stopped")
	return 0
}

func newStorageBackend(ctx context.Context, cfg config.ServerConfig) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		return storage.NewS3Backend(ctx, storage.S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
		})
	default:
		return storage.NewLocalBackend(cfg.StoragePath)
	}
}
