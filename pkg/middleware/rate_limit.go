package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/boxbook/pkg/logger"
	"github.com/diagnosis/boxbook/pkg/response"
)

// WindowCounter counts hits for a key inside a fixed window.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int                            // Max requests per window
	Window   time.Duration                  // Time window duration
	Prefix   string                         // Namespace for counter keys
	KeyFunc  func(r *http.Request) []string // Function to generate rate limit keys
}

type RateLimiter struct {
	counter WindowCounter
	config  RateLimitConfig
}

func NewRateLimiter(counter WindowCounter, config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKeyFunc
	}
	return &RateLimiter{counter: counter, config: config}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, key := range rl.config.KeyFunc(r) {
				if !rl.allow(r.Context(), key) {
					response.RateLimit(w, "Too many requests. Try again later.")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	hashed := fmt.Sprintf("ratelimit:%s:%x", rl.config.Prefix, sha256.Sum256([]byte(key)))
	count, err := rl.counter.Incr(ctx, hashed, rl.config.Window)
	if err != nil {
		// fail open
		logger.WarnContext(ctx, "Rate limit counter unavailable", "error", err)
		return true
	}
	return count <= int64(rl.config.Requests)
}

// ClientIPKeyFunc rate limits by client address.
func ClientIPKeyFunc(r *http.Request) []string {
	if ip := clientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
