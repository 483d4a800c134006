// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "SESSION_TTL", "ALLOWED_ORIGINS", "REDIS_ADDR", "HISTORIAN_FLUSH_MS", "HTTP_RATE_MAX", "HTTP_RATE_WINDOW"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlushDelay)
	assert.Equal(t, defaultOrigins, cfg.AllowedOrigins)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 500, cfg.HTTPRateMax)
	assert.Equal(t, 15*time.Minute, cfg.HTTPRateWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("SESSION_CLEANUP_INTERVAL", "120")
	t.Setenv("MAX_CONNECTIONS", "7")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("GLOBAL_SESSION_ID", "")
	t.Setenv("HTTP_RATE_MAX", "50")
	t.Setenv("HTTP_RATE_WINDOW", "1m")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
	assert.Equal(t, 2*time.Minute, cfg.SessionCleanupInterval)
	assert.Equal(t, 7, cfg.MaxConnections)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.GlobalSessionID, "explicitly empty disables the global table")
	assert.Equal(t, 50, cfg.HTTPRateMax)
	assert.Equal(t, time.Minute, cfg.HTTPRateWindow)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("MAX_CONNECTIONS", "lots")
	t.Setenv("SOCKET_RATE_WINDOW", "-5s")
	t.Setenv("LOG_LEVEL", "chatty")

	cfg := Load()
	assert.Equal(t, 500, cfg.MaxConnections)
	assert.Equal(t, time.Minute, cfg.SocketRateWindow)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}
