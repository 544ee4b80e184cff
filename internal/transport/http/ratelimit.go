package http

import (
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/time/rate"
)

// RateLimiter manages per-IP request limiters. Limiters live in a TTL
// cache so idle clients fall out instead of accumulating forever.
type RateLimiter struct {
	limiters *ristretto.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// with the given burst per client IP.
func NewRateLimiter(rps float64, burst int) (*RateLimiter, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *rate.Limiter]{
		NumCounters: 100_000, // ~10x expected distinct IPs
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &RateLimiter{
		limiters: cache,
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      10 * time.Minute,
	}, nil
}

// GetLimiter returns the limiter tracking ip, creating one if needed.
// Cache admission is buffered, so the first requests from a fresh IP may
// each allocate a limiter before one sticks; that only widens the very
// first burst window.
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	if limiter, ok := rl.limiters.Get(ip); ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.limiters.SetWithTTL(ip, limiter, 1, rl.ttl)
	return limiter
}

// Close releases the limiter cache.
func (rl *RateLimiter) Close() {
	rl.limiters.Close()
}

// RateLimitMiddleware creates a middleware for rate limiting
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.GetLimiter(getIPAddress(r))
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
