package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT_MINUTES", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout())
	assert.Equal(t, "portal_sid", cfg.Session.CookieName)
	assert.Equal(t, 2*time.Second, cfg.Session.GuardInitWait())
	assert.Equal(t, time.Minute, cfg.Session.FreshRetention())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT_MINUTES", "3")
	t.Setenv("PORTAL_API_BASE_URL", "http://api.internal")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("SESSION_SWEEP_FRESH_RETENTION_SECONDS", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, cfg.Session.IdleTimeout())
	assert.Equal(t, "http://api.internal", cfg.API.BaseURL)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 15*time.Second, cfg.Session.FreshRetention())
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT_MINUTES", "ten")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout())
}
