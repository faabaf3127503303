package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, StorageBackendLocal, cfg.StorageBackend)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 24, cfg.JWTExpirationHours)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadServerConfigProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadServerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadServerConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("STORAGE_BACKEND", "tape")

	_, err := LoadServerConfig()
	assert.Error(t, err)
}

func TestLoadServerConfigS3(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "varhold-blobs")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageBackendS3, cfg.StorageBackend)
	assert.Equal(t, "varhold-blobs", cfg.S3.Bucket)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
}
