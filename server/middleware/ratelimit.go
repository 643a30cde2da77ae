package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// RequestsPerMinute is both the sustained rate and the burst per key.
	RequestsPerMinute int
	// KeyFunc defaults to the client IP.
	KeyFunc func(*gin.Context) string
	Now     func() time.Time
}

// idleAfter is how long a key may go unseen before its bucket is dropped.
const idleAfter = 5 * time.Minute

// RateLimit gives every key a token bucket refilled at RequestsPerMinute.
// Rejected requests get 429 and a Retry-After in seconds.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = (*gin.Context).ClientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &buckets{
		every: time.Minute / time.Duration(cfg.RequestsPerMinute),
		burst: cfg.RequestsPerMinute,
		keys:  map[string]*bucket{},
	}

	return func(c *gin.Context) {
		now := cfg.Now()
		if wait, ok := b.take(cfg.KeyFunc(c), now); !ok {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type buckets struct {
	every time.Duration
	burst int

	mu    sync.Mutex
	keys  map[string]*bucket
	swept time.Time
}

// take spends one token for key, or reports how long until one is free.
func (b *buckets) take(key string, now time.Time) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.swept) > idleAfter {
		for k, bk := range b.keys {
			if now.Sub(bk.seen) > idleAfter {
				delete(b.keys, k)
			}
		}
		b.swept = now
	}

	bk, ok := b.keys[key]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(rate.Every(b.every), b.burst)}
		b.keys[key] = bk
	}
	bk.seen = now
	r := bk.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay, false
	}
	return 0, true
}
