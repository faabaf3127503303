// Package config provides configuration management for Varhold.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// StorageBackendType selects the blob storage backend.
type StorageBackendType string

const (
	// StorageBackendLocal stores blobs on the local filesystem.
	StorageBackendLocal StorageBackendType = "local"
	// StorageBackendS3 stores blobs in an S3-compatible bucket.
	StorageBackendS3 StorageBackendType = "s3"
)

// S3Config holds S3 blob backend settings.
type S3Config struct {
	Endpoint        string
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// ServerConfig holds server-level configuration loaded from environment
// variables. All consumers receive it (or a slice of it) through their
// constructors; nothing reads the environment after startup.
type ServerConfig struct {
	Environment Environment
	Host        string
	Port        int

	DatabaseURL string

	JWTSecret          string
	JWTExpirationHours int

	StorageBackend StorageBackendType
	StoragePath    string
	S3             S3Config

	// MaxBodyBytes caps request bodies before any tier check runs.
	MaxBodyBytes int64

	// RateLimitRequests/Period drive the per-IP limiter. RedisURL, when
	// set, switches the limiter to a shared Redis store.
	RateLimitRequests int64
	RateLimitPeriod   string
	RedisURL          string

	AllowedOrigins []string

	// ReconcileSchedule is a cron expression for the orphan-blob sweep.
	// Empty disables the scheduled sweep.
	ReconcileSchedule string
}

// LoadServerConfig reads server configuration from environment variables.
// It fails rather than defaulting when a secret is missing in production.
func LoadServerConfig() (ServerConfig, error) {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		if env == EnvProduction {
			return ServerConfig{}, fmt.Errorf("JWT_SECRET is required in production")
		}
		jwtSecret = "dev-secret-change-in-production"
	}

	backend := StorageBackendType(getEnv("STORAGE_BACKEND", string(StorageBackendLocal)))
	switch backend {
	case StorageBackendLocal, StorageBackendS3:
		// valid
	default:
		return ServerConfig{}, fmt.Errorf("unknown STORAGE_BACKEND %q", backend)
	}

	cfg := ServerConfig{
		Environment:        env,
		Host:               getEnv("SERVER_HOST", "0.0.0.0"),
		Port:               getEnvInt("SERVER_PORT", 8080),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          jwtSecret,
		JWTExpirationHours: getEnvInt("JWT_EXPIRATION_HOURS", 24),
		StorageBackend:     backend,
		StoragePath:        getEnv("STORAGE_PATH", "./data/variables"),
		S3: S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Bucket:          os.Getenv("S3_BUCKET"),
			Prefix:          os.Getenv("S3_PREFIX"),
			Region:          os.Getenv("S3_REGION"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			UseSSL:          getEnvBool("S3_USE_SSL", true),
		},
		MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 64*1024*1024)),
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 300)),
		RateLimitPeriod:   getEnv("RATE_LIMIT_PERIOD", "1m"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ReconcileSchedule: os.Getenv("RECONCILE_SCHEDULE"),
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.JWTExpirationHours <= 0 {
		cfg.JWTExpirationHours = 24
	}

	return cfg, nil
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
