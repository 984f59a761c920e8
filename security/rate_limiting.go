package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
	"github.com/redis/go-redis/v9"
)

// RateLimiter applies Redis fixed-window limits to write endpoints,
// mainly to keep seat-lock hammering in check. Authenticated requests
// are limited per user, anonymous ones per IP.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit allows maxRequests per window for a named operation group.
func (r *RateLimiter) Limit(group string, maxRequests int, window time.Duration) *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "rateLimit:" + group,
		Func: func(e *core.RequestEvent) error {
			key := fmt.Sprintf("ratelimit:%s:%s", group, r.identify(e))

			count, err := r.redis.Incr(e.Request.Context(), key).Result()
			if err != nil {
				// Redis being down should not take the API down with it.
				return e.Next()
			}
			if count == 1 {
				r.redis.Expire(e.Request.Context(), key, window)
			}
			if count > int64(maxRequests) {
				return apis.NewApiError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			}

			return e.Next()
		},
	}
}

// AntiBot rejects obvious scraper user agents and throttles aggressive
// IPs regardless of authentication.
func (r *RateLimiter) AntiBot() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "antiBot",
		Func: func(e *core.RequestEvent) error {
			if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
				return apis.NewForbiddenError("Access denied", nil)
			}

			key := fmt.Sprintf("antibot:%s", e.RealIP())
			count, err := r.redis.Incr(e.Request.Context(), key).Result()
			if err == nil {
				if count == 1 {
					r.redis.Expire(e.Request.Context(), key, time.Minute)
				}
				if count > 60 {
					return apis.NewApiError(http.StatusTooManyRequests, "Too many requests", nil)
				}
			}

			return e.Next()
		},
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
	lower := strings.ToLower(ua)
	for _, pattern := range suspicious {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
