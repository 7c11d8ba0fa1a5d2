package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/keygate/keygate/pkg/httputil"
)

// RateLimitConfig bounds requests per fixed window.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// DefaultLoginRateLimitConfig limits credential-bearing endpoints per source
// address. The window is deliberately small so lockouts self-heal.
func DefaultLoginRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
	}
}

// RateLimiter implements fixed-window rate limiting on Redis so limits are
// shared across instances. Redis errors fail open: an unavailable limiter
// must not take the login path down with it.
type RateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
	logger *logrus.Logger

	// onReject, when set, is called once per rejected request.
	onReject func()
}

// NewRateLimiter creates a Redis-backed rate limiter.
func NewRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string, logger *logrus.Logger) *RateLimiter {
	if config == nil {
		config = DefaultLoginRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RateLimiter{redis: redisClient, config: config, prefix: prefix, logger: logger}
}

// OnReject registers a callback invoked for each rejected request.
func (rl *RateLimiter) OnReject(fn func()) *RateLimiter {
	rl.onReject = fn
	return rl
}

// Allow reports whether a request under key is within the window budget.
func (rl *RateLimiter) Allow(r *http.Request, key string) bool {
	ctx := r.Context()
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.WithError(err).Warn("rate limiter unavailable, failing open")
		return true
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow)
}

// Handler wraps next with per-client-IP rate limiting.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + clientIP(r)
		if !rl.Allow(r, key) {
			if rl.onReject != nil {
				rl.onReject()
			}
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the originating address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
