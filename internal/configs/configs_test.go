package configs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// setS3Env fills in the storage variables every load requires.
func setS3Env(t *testing.T) {
	t.Helper()
	t.Setenv("S3_BUCKET_NAME", "vaaniarc-test")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_ACCESS_KEY_ID", "test-key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "test-secret")
}

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	setS3Env(t)
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 8080, cfg.Port)
	require.Empty(t, cfg.AllowedOrigins)
	require.NotEmpty(t, cfg.JWTSecret)
	require.NotEmpty(t, cfg.DatabaseDSN)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	setS3Env(t)
	t.Setenv("PORT", "not-a-port")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("PORT", "80")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigAllowedOriginsParsing(t *testing.T) {
	setS3Env(t)
	t.Setenv("ALLOWED_ORIGINS", " https://app.example.com , https://admin.example.com ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfigProductionRequiresSecrets(t *testing.T) {
	setS3Env(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	t.Setenv("DATABASE_URL", "")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/vaaniarc")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
}
