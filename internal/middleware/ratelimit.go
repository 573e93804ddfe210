package middleware

import (
	"net/http"
	"sync"
	"time"

	"backoffice/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// defaultIdleTTL is how long a client's bucket survives without requests.
const defaultIdleTTL = 10 * time.Minute

// RateLimiter throttles API clients by IP with one token bucket each.
// Buckets of idle clients expire.
type RateLimiter struct {
	buckets *cache.Cache
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	idle    time.Duration
}

// NewRateLimiter creates a per-IP limiter. A non-positive rps disables it.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return newRateLimiter(rps, burst, defaultIdleTTL)
}

func newRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: cache.New(idle, 2*idle),
		rate:    rate.Limit(rps),
		burst:   max(burst, 1),
		idle:    idle,
	}
}

// bucket returns the client's limiter and refreshes its idle deadline.
func (rl *RateLimiter) bucket(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var l *rate.Limiter
	if v, ok := rl.buckets.Get(ip); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(rl.rate, rl.burst)
	}
	rl.buckets.Set(ip, l, rl.idle)
	return l
}

// Clients returns how many client buckets are live.
func (rl *RateLimiter) Clients() int {
	return rl.buckets.ItemCount()
}

// Middleware rejects requests beyond the client's budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}
		if !rl.bucket(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			common.Error(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
