package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pulse-social/pulse/pkg/response"
)

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 40
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 5 * time.Minute
	}
	return &RateLimiter{
		cfg:      cfg,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether the client identified by key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops idle visitors at most once per IdleTTL. Caller holds rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.cfg.IdleTTL {
		return
	}
	rl.lastSweep = now
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.cfg.IdleTTL {
			delete(rl.visitors, key)
		}
	}
}

// Middleware returns a gin handler that answers 429 once a client exceeds its bucket.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			response.Abort(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
