// Package cache is the Redis read-side cache for catalog and order queries.
// It is strictly an accelerator: every operation degrades to a miss or a
// logged warning when Redis is unavailable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type QueryCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewQueryCache(redisClient *redis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{redis: redisClient, ttl: ttl}
}

// Get unmarshals the cached value for key into dest and reports whether it
// was present.
func (c *QueryCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.redis == nil {
		return false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		c.redis.Del(ctx, key)
		return false
	}
	return true
}

func (c *QueryCache) Set(ctx context.Context, key string, value any) {
	if c == nil || c.redis == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}

// DeletePattern removes every key matching pattern. Patterns here are few and
// keyspaces small, so KEYS is acceptable.
func (c *QueryCache) DeletePattern(ctx context.Context, pattern string) {
	if c == nil || c.redis == nil {
		return
	}

	keys, err := c.redis.Keys(ctx, pattern).Result()
	if err != nil {
		slog.Warn("cache scan failed", "pattern", pattern, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache delete failed", "pattern", pattern, "error", err)
	}
}

func (c *QueryCache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.redis == nil || len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache delete failed", "keys", keys, "error", err)
	}
}
