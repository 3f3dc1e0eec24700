package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Per-IP token-bucket limiter for the protected (fund-moving) route group.
// Each IP refills at ratePerMin/60 tokens per second up to a burst cap; an
// empty bucket gets HTTP 429 with a Retry-After hint. Buckets idle longer
// than bucketIdleTTL are dropped by a background sweep so transient IPs
// don't grow the map without bound.

const bucketIdleTTL = 10 * time.Minute

type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	lastSeen time.Time
}

// RateLimiter holds the per-IP bucket table.
type RateLimiter struct {
	ratePerSec float64
	burst      float64

	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

// NewRateLimiter allows ratePerMin requests per minute per IP with the
// given burst capacity.
func NewRateLimiter(ratePerMin, burst int) *RateLimiter {
	rl := &RateLimiter{
		ratePerSec: float64(ratePerMin) / 60.0,
		burst:      float64(burst),
		buckets:    make(map[string]*tokenBucket),
	}
	go rl.sweepIdle()
	return rl
}

func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &tokenBucket{tokens: rl.burst}
		rl.buckets[ip] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.ratePerSec
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastSeen = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true, 0
	}
	retryAfter := time.Duration((1.0-b.tokens)/rl.ratePerSec*1000) * time.Millisecond
	return false, retryAfter
}

// Middleware returns the Gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	limit := fmt.Sprintf("%.0f requests/minute per IP", rl.ratePerSec*60)
	return func(c *gin.Context) {
		allowed, retryAfter := rl.allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"retryAfter": retryAfter.String(),
				"limit":      limit,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) sweepIdle() {
	ticker := time.NewTicker(bucketIdleTTL)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-bucketIdleTTL)
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			b.mu.Lock()
			idle := b.lastSeen.Before(cutoff)
			b.mu.Unlock()
			if idle {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}
