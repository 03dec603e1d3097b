package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rewardhub/observability"
)

// RateLimit is a token bucket refilled at RatePerSecond.
type RateLimit struct {
	RatePerSecond float64
	Burst         int
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per (route, client). Authenticated callers are
// keyed by principal, anonymous ones by address.
type RateLimiter struct {
	logger   *slog.Logger
	limits   map[string]RateLimit
	idleTTL  time.Duration
	clockNow func() time.Time

	mu       sync.Mutex
	visitors map[string]*rateEntry
	swept    time.Time
}

func NewRateLimiter(limits map[string]RateLimit, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		logger:   logger,
		limits:   limits,
		idleTTL:  5 * time.Minute,
		clockNow: time.Now,
		visitors: make(map[string]*rateEntry),
	}
}

func (r *RateLimiter) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			limit, ok := r.limits[route]
			if !ok || limit.RatePerSecond <= 0 {
				next.ServeHTTP(w, req)
				return
			}
			client := clientID(req)
			if !r.limiter(route+"|"+client, limit).AllowN(r.clockNow(), 1) {
				observability.Gateway().RecordThrottle(route, "rate")
				r.logger.Debug("request throttled", slog.String("route", route), slog.String("client", client))
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func (r *RateLimiter) limiter(key string, cfg RateLimit) *rate.Limiter {
	now := r.clockNow()
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.swept) >= r.idleTTL {
		for id, entry := range r.visitors {
			if now.Sub(entry.lastSeen) >= r.idleTTL {
				delete(r.visitors, id)
			}
		}
		r.swept = now
	}
	if entry, ok := r.visitors[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	entry := &rateEntry{limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst), lastSeen: now}
	r.visitors[key] = entry
	return entry.limiter
}

func clientID(r *http.Request) string {
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		return "principal:" + string(principal[:])
	}
	if relay := strings.TrimSpace(r.Header.Get("X-Relay-Id")); relay != "" {
		return "relay:" + relay
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if parsed := net.ParseIP(first); parsed != nil {
			return parsed.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
