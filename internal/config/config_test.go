package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.Database.Backend)
	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, time.Minute, cfg.Cache.ContentTTL)
	assert.Equal(t, 120, cfg.Security.RateLimitRPM)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Security.CORSAllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("EV_ENV", "prod")
	t.Setenv("EV_HTTP_ADDR", ":9000")
	t.Setenv("EV_JWT_SECRET", "super-secret")
	t.Setenv("EV_CONTENT_CACHE_TTL", "5m")
	t.Setenv("EV_CORS_ALLOWED_ORIGINS", "https://enervolt.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ContentTTL)
	assert.Equal(t, []string{"https://enervolt.example"}, cfg.Security.CORSAllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	t.Run("postgres backend needs a DSN", func(t *testing.T) {
		t.Setenv("EV_DB_BACKEND", "postgres")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EV_POSTGRES_DSN")
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("EV_DB_BACKEND", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EV_DB_BACKEND")
	})

	t.Run("prod needs a JWT secret", func(t *testing.T) {
		t.Setenv("EV_ENV", "prod")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EV_JWT_SECRET")
	})
}
