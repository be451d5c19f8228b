package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Token Bucket Rate Limiter
// ──────────────────────────────────────────────────────────────────────────────

// DefaultIdleTTL is how long a caller's bucket survives without traffic.
const DefaultIdleTTL = 10 * time.Minute

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Authenticated callers are
// keyed by address, everyone else by client IP. Buckets idle for longer than
// the TTL are dropped on a later request.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64 // tokens per second
	burst     float64 // maximum token capacity
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of max(10, rps). now may be nil to use the wall clock.
func NewRateLimiter(rps int, idleTTL time.Duration, now func() time.Time) *RateLimiter {
	burst := float64(rps)
	if burst < 10 {
		burst = 10
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      float64(rps),
		burst:     burst,
		idleTTL:   idleTTL,
		lastSweep: now(),
		now:       now,
	}
}

// Allow deducts one token from key's bucket and reports whether one was left.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweep(now)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// sweep drops idle buckets. Caller holds rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.idleTTL)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// Middleware enforces the limit, answering 429 Too Many Requests once a
// caller's bucket is empty. Place it after IdentityMiddleware so token
// holders are limited by address.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, please slow down",
				"code":    "ERR_RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware returns a per-caller limit of rps requests per second.
// rps <= 0 disables the limit.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return NewRateLimiter(rps, DefaultIdleTTL, nil).Middleware()
}

func callerKey(c *gin.Context) string {
	if addr := GetAddress(c); addr != "" {
		return "addr:" + addr
	}
	return "ip:" + c.ClientIP()
}
