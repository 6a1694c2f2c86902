// Package cache provides the ephemeral cache tier for incident reports: a
// Redis client when one is reachable, otherwise an in-process map honoring
// the same TTL contract so the pipeline never blocks on cache availability.
package cache

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Cache is a string key/value store with per-entry TTL. Implementations are
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// connectTimeout bounds the startup ping to the cache backend.
const connectTimeout = 5 * time.Second

// Connect returns the Redis-backed cache when redisURL is set and the server
// answers a ping, and otherwise substitutes the in-process cache. Cache
// availability is never fatal.
func Connect(ctx context.Context, redisURL string, logger log.Logger) Cache {
	if logger == nil {
		logger = log.Nop()
	}
	if redisURL == "" {
		logger.Info(ctx, "using in-process cache (no redis-url configured)")
		return NewMemory()
	}

	c, err := NewRedis(ctx, redisURL)
	if err != nil {
		logger.Warn(ctx, "redis unreachable, substituting in-process cache", "error", err)
		return NewMemory()
	}
	logger.Info(ctx, "using redis cache")
	return c
}
