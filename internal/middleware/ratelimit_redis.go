package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisRateLimiter is a per-IP fixed-window limiter shared by every API
// replica through Redis.
type RedisRateLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisRateLimiter allows limit requests per IP in each window.
func NewRedisRateLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: int64(limit), window: window, now: time.Now}
}

// Middleware returns an HTTP middleware that enforces the limit.
// On Redis errors it fails open (allows the request through).
func (rl *RedisRateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractClientIP(r)

			allowed, retryAfter, err := rl.allow(r.Context(), ip)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("ip", ip).Msg("rate limiter: redis error, failing open")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				tooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) allow(ctx context.Context, ip string) (bool, int, error) {
	now := rl.now()
	windowStart := now.Truncate(rl.window)
	key := fmt.Sprintf("ratelimit:%s:%d", ip, windowStart.Unix())

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	retryAfter := int(windowStart.Add(rl.window).Sub(now).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	return incr.Val() <= rl.limit, retryAfter, nil
}
