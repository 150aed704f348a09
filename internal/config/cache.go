package config

import (
	"os"
	"time"
)

// OccupancyCacheConfig defines settings for the occupancy read cache.
// When Enabled is false or no Redis client is configured, occupancy reads
// always hit the database.  The TTL is only a backstop: writers invalidate
// keys explicitly the moment a booking or cancellation commits, so entries
// are not expected to live to their TTL in normal operation.
type OccupancyCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadOccupancyCacheConfig reads environment variables to build an
// OccupancyCacheConfig.  Defaults are used when variables are not set.
func LoadOccupancyCacheConfig() OccupancyCacheConfig {
	return OccupancyCacheConfig{
		Enabled: getenv("OCCUPANCY_CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("OCCUPANCY_CACHE_TTL", "5m")),
		Prefix:  getenv("OCCUPANCY_CACHE_PREFIX", "occupancy"),
	}
}

// Helper functions shared with redis.go and ratelimit.go
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
