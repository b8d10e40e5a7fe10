package config

import (
	"os"
	"strconv"
	"time"
)

// GeocodeCacheConfig controls the Redis cache in front of the geocoder.
// Caching is off when Enabled is false or no Redis client is available.
// Misses (addresses the service could not resolve) are cached for
// NegativeTTL so a bad address is not looked up on every retry.
type GeocodeCacheConfig struct {
	Enabled     bool
	TTL         time.Duration
	NegativeTTL time.Duration
	Prefix      string
}

// LoadGeocodeCacheConfig reads GEOCODE_CACHE_* variables, falling back to
// defaults when they are unset.
func LoadGeocodeCacheConfig() GeocodeCacheConfig {
	return GeocodeCacheConfig{
		Enabled:     getenv("GEOCODE_CACHE_ENABLED", "true") == "true",
		TTL:         parseDur(getenv("GEOCODE_CACHE_TTL", "720h")),
		NegativeTTL: parseDur(getenv("GEOCODE_CACHE_NEGATIVE_TTL", "10m")),
		Prefix:      getenv("GEOCODE_CACHE_PREFIX", "geo"),
	}
}

// Helper functions shared with redis.go and ratelimit.go
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Minute
	}
	return d
}
