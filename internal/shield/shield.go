// Package shield holds the HTTP middleware `webclip serve` puts in front
// of the clip API: security headers and a per-client capture rate limit.
package shield

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIHeaders sets the security headers for a JSON and binary API that
// never serves HTML.
func APIHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter allows at most max requests per client IP in each window.
// Expired buckets are collected lazily.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	buckets map[string]*bucket
	lastGC  time.Time
}

// NewRateLimiter creates a limiter. max <= 0 disables it.
func NewRateLimiter(max int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		max:     max,
		window:  window,
		now:     time.Now,
		logger:  logger,
		buckets: make(map[string]*bucket),
	}
}

// Allow records one request from ip and reports whether it is within the
// limit, with the time left until the window resets.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	if rl.max <= 0 {
		return true, 0
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastGC) > rl.window {
		for k, b := range rl.buckets {
			if now.After(b.resetAt) {
				delete(rl.buckets, k)
			}
		}
		rl.lastGC = now
	}

	b, ok := rl.buckets[ip]
	if !ok || now.After(b.resetAt) {
		rl.buckets[ip] = &bucket{count: 1, resetAt: now.Add(rl.window)}
		return true, 0
	}
	b.count++
	return b.count <= rl.max, b.resetAt.Sub(now)
}

// Middleware answers 429 with a JSON error once a client exceeds the limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		ok, wait := rl.Allow(ip)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.Warn("shield: rate limit exceeded", "ip", ip, "path", r.URL.Path)
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ClientIP returns the host part of RemoteAddr. Run chi's RealIP first
// when the server sits behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
