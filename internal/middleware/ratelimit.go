package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/rinsr/internal/domain"
	"github.com/DukeRupert/rinsr/internal/metrics"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter tracks request counts per key with a sliding window.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger

	mu      sync.RWMutex
	entries map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(maxAttempts int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
		entries:     make(map[string]*rateLimitEntry),
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request from the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry := rl.current(key, time.Now())
	if entry.count < rl.maxAttempts {
		entry.count++
		return true
	}
	return false
}

// Release returns one attempt taken by Allow, for attempts whose outcome
// should not count.
func (rl *RateLimiter) Release(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, exists := rl.entries[key]; exists && entry.count > 0 {
		entry.count--
	}
}

// Reset clears the rate limit for a key (e.g., after successful login).
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// TimeUntilReset returns how long until the rate limit resets for a key.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, exists := rl.entries[key]
	if !exists {
		return 0
	}

	elapsed := time.Since(entry.windowStart)
	if elapsed >= rl.window {
		return 0
	}

	return rl.window - elapsed
}

// current returns the live entry for key, opening a fresh window when the
// old one expired. Caller holds the write lock.
func (rl *RateLimiter) current(key string, now time.Time) *rateLimitEntry {
	entry, exists := rl.entries[key]
	if !exists || now.Sub(entry.windowStart) > rl.window {
		entry = &rateLimitEntry{windowStart: now}
		rl.entries[key] = entry
	}
	return entry
}

// cleanup periodically removes expired entries to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, entry := range rl.entries {
			if now.Sub(entry.windowStart) > rl.window {
				delete(rl.entries, key)
			}
		}
		rl.mu.Unlock()
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware wraps a rate limiter for use as HTTP middleware.
type RateLimitMiddleware struct {
	limiter    *RateLimiter
	trustProxy bool
	logger     *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware. Clients are
// keyed by ClientIP(r, trustProxy).
func NewRateLimitMiddleware(limiter *RateLimiter, trustProxy bool, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:    limiter,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// Limit returns middleware that rate limits requests. Every request counts
// against the window.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r, m.trustProxy)

		if !m.limiter.Allow(clientIP) {
			m.reject(w, r, clientIP)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// reject writes the 429 envelope with a Retry-After header.
func (m *RateLimitMiddleware) reject(w http.ResponseWriter, r *http.Request, clientIP string) {
	m.logger.Warn("rate limit exceeded",
		"ip", clientIP,
		"path", r.URL.Path,
		"method", r.Method,
	)

	retryAfter := int(m.limiter.TimeUntilReset(clientIP).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	err := domain.RateLimit("middleware.RateLimit")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(domain.Failed(err))
}

// =============================================================================
// Login Rate Limiter
// =============================================================================

// LoginRateLimiter guards the login endpoint. Every attempt takes a slot
// when it arrives, so concurrent attempts cannot overrun the limit. Only
// rejected credentials keep their slot: the handler releases attempts that
// ended otherwise, and a successful login clears the caller's window.
type LoginRateLimiter struct {
	mw *RateLimitMiddleware
}

// NewLoginRateLimiter creates a login limiter allowing maxFailures failed
// attempts per window for each client.
func NewLoginRateLimiter(maxFailures int, window time.Duration, trustProxy bool, logger *slog.Logger) *LoginRateLimiter {
	return &LoginRateLimiter{
		mw: NewRateLimitMiddleware(NewRateLimiter(maxFailures, window, logger), trustProxy, logger),
	}
}

// Limit returns middleware that takes a slot for each login attempt and
// rejects clients with none left.
func (a *LoginRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := a.clientIP(r)
		if !a.mw.limiter.Allow(clientIP) {
			metrics.LoginAttempt("rate_limited")
			a.mw.reject(w, r, clientIP)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ReleaseLogin gives back the slot of an attempt that did not fail on
// credentials (bad input, upstream outage).
func (a *LoginRateLimiter) ReleaseLogin(r *http.Request) {
	a.mw.limiter.Release(a.clientIP(r))
}

// ResetLogin clears the rate limit for the request's client after a
// successful login.
func (a *LoginRateLimiter) ResetLogin(r *http.Request) {
	a.mw.limiter.Reset(a.clientIP(r))
}

func (a *LoginRateLimiter) clientIP(r *http.Request) string {
	return ClientIP(r, a.mw.trustProxy)
}

// =============================================================================
// Helpers
// =============================================================================

// ClientIP returns the address a request is attributed to. Without
// trustProxy it is the peer address. With it, X-Forwarded-For is read from
// the right and the first public address wins: entries to its left were
// supplied by the client and can be forged. X-Real-IP is the fallback.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// forwardedFor picks the rightmost public address of an X-Forwarded-For
// chain, or the rightmost valid entry when every hop is private.
func forwardedFor(xff string) string {
	var nearest string
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			continue
		}
		if !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
			return ip.String()
		}
		if nearest == "" {
			nearest = ip.String()
		}
	}
	return nearest
}
