package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/forgo/saga/onboarding/internal/model"
)

// RateLimiter is a per-key token bucket. Buckets refill continuously at
// Rate per Window and hold at most Rate+Burst tokens.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	Rate   int           // requests per window (default 100)
	Window time.Duration // default 1 minute
	Burst  int           // extra capacity (default 20, negative for none)
}

// NewRateLimiter creates a new rate limiter. Idle buckets are dropped by
// Prune, which the session sweeper calls.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Burst < 0 {
		cfg.Burst = 0
	} else if cfg.Burst == 0 {
		cfg.Burst = 20
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    cfg.Rate,
		window:  cfg.Window,
		burst:   cfg.Burst,
		now:     time.Now,
	}
}

// Allow takes one token for key. It returns the tokens left and how long
// until the next token is available.
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	capacity := float64(rl.rate + rl.burst)
	perToken := rl.window / time.Duration(rl.rate)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, lastSeen: now}
		rl.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastSeen)
		b.tokens = min(capacity, b.tokens+float64(rl.rate)*elapsed.Seconds()/rl.window.Seconds())
		b.lastSeen = now
	}

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) * float64(perToken))
		return false, 0, wait
	}
	b.tokens--
	return true, int(b.tokens), 0
}

// Prune drops buckets untouched for two windows and returns how many
func (rl *RateLimiter) Prune(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-2 * rl.window)
	pruned := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			pruned++
		}
	}
	return pruned
}

// RateLimit limits by authenticated user, falling back to remote address
func RateLimit(limiter *RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetUserID(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			allowed, remaining, wait := limiter.Allow(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.rate))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				retryAfter := int(wait.Round(time.Second).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				model.NewRateLimitError(retryAfter).WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
