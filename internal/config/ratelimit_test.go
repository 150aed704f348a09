package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
	assert.Equal(t, "rl", cfg.Prefix)
}

func TestLoadRateLimitConfigOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
}

func TestLoadRateLimitConfigFloorsTTL(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "5m")
	t.Setenv("RATE_LIMIT_TTL", "1m")
	cfg := LoadRateLimitConfig()
	// An active bucket must outlive several refill intervals.
	assert.Equal(t, 25*time.Minute, cfg.TTL)
}

func TestEnvBoolSpellings(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "off")
	assert.False(t, LoadRateLimitConfig().Enabled)
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")
	assert.True(t, LoadRateLimitConfig().Enabled, "unrecognised values keep the default")
}
