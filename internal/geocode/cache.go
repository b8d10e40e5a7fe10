package geocode

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/lodging-listings/internal/config"
	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/model"
)

// store is the subset of *redis.Client the cache needs.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

const noMatch = "none"

// Cached memoises another Geocoder in Redis.  Cache failures never fail a
// lookup: they are logged and the inner geocoder is asked instead.
type Cached struct {
	inner Geocoder
	rdb   store
	cfg   config.GeocodeCacheConfig
}

// NewCached wraps inner.  With a nil client or a disabled config it
// returns inner unchanged.
func NewCached(inner Geocoder, rdb *redis.Client, cfg config.GeocodeCacheConfig) Geocoder {
	if rdb == nil || !cfg.Enabled {
		return inner
	}
	return &Cached{inner: inner, rdb: rdb, cfg: cfg}
}

func (c *Cached) key(addr model.Address) string {
	sum := sha1.Sum([]byte(strings.ToLower(addr.String())))
	return c.cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

func (c *Cached) Geocode(ctx context.Context, addr model.Address) (model.GeoPoint, error) {
	log := logger.FromContext(ctx)
	key := c.key(addr)

	v, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if v == noMatch {
			return model.GeoPoint{}, ErrNoMatch
		}
		if pt, ok := decodePoint(v); ok {
			return pt, nil
		}
		log.Warn("discarding malformed geocode cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		log.Warn("geocode cache read failed", "err", err)
	}

	pt, err := c.inner.Geocode(ctx, addr)
	switch {
	case err == nil:
		c.put(ctx, key, encodePoint(pt), c.cfg.TTL)
	case errors.Is(err, ErrNoMatch):
		c.put(ctx, key, noMatch, c.cfg.NegativeTTL)
	}
	return pt, err
}

func (c *Cached) put(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("geocode cache write failed", "err", err)
	}
}

func encodePoint(p model.GeoPoint) string {
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

func decodePoint(s string) (model.GeoPoint, bool) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return model.GeoPoint{}, false
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	p := model.GeoPoint{Latitude: la, Longitude: lo}
	return p, err1 == nil && err2 == nil && p.Valid()
}
