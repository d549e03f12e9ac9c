// Package security holds request-level protections for the public API.
package security

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/redis/go-redis/v9"

	"tickethub/config"
)

// RateLimiter is a fixed-window limiter backed by Redis INCR, keyed by the
// authenticated user when available and the client IP otherwise. Shared
// across instances because the counters live in Redis.
type RateLimiter struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRateLimiter(redisClient *redis.Client, cfg *config.Config) *RateLimiter {
	return &RateLimiter{redis: redisClient, cfg: cfg}
}

// Middleware enforces the limit on every request it wraps. When Redis is
// down the request is allowed through: availability over strictness.
func (r *RateLimiter) Middleware() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		key := fmt.Sprintf("ratelimit:%s", r.identify(e))

		count, err := r.redis.Incr(e.Request.Context(), key).Result()
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(e.Request.Context(), key, r.cfg.RateLimitWindow)
		}
		if count > int64(r.cfg.RateLimitMax) {
			return router.NewApiError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
		}
		return e.Next()
	}
}

// AntiBot rejects requests from clients that identify as automated scrapers.
func (r *RateLimiter) AntiBot() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			return router.NewApiError(http.StatusForbidden, "Access denied", nil)
		}
		return e.Next()
	}
}

func (r *RateLimiter) identify(e *core.RequestEvent) string {
	if e.Auth != nil {
		return "user:" + e.Auth.Id
	}
	return "ip:" + e.RealIP()
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	ua = strings.ToLower(ua)
	for _, pattern := range suspicious {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
