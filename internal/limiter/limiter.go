package limiter

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/23skdu/longview/internal/cache"
	"github.com/23skdu/longview/internal/metrics"
)

// Config holds rate limiter configuration
type Config struct {
	RPS   int `envconfig:"RATE_RPS" default:"0"`   // 0 means disabled
	Burst int `envconfig:"RATE_BURST" default:"0"` // 0 means use RPS
}

const (
	clientCacheSize = 8192
	clientCacheTTL  = 10 * time.Minute
)

// RateLimiter hands each client IP its own token bucket. Buckets live in
// a bounded LRU cache so idle clients age out and a flood of distinct
// addresses cannot grow memory without bound.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	clients *cache.Cache[*rate.Limiter]
	enabled bool
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg Config) *RateLimiter {
	if cfg.RPS <= 0 {
		return &RateLimiter{enabled: false}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RPS
	}
	return &RateLimiter{
		rps:     rate.Limit(cfg.RPS),
		burst:   burst,
		clients: cache.New[*rate.Limiter]("ratelimit", clientCacheSize, clientCacheTTL),
		enabled: true,
	}
}

// bucket returns the limiter for one client, creating it on first sight.
// An evicted or expired client starts over with a full bucket.
func (l *RateLimiter) bucket(ip string) *rate.Limiter {
	key := cache.StringKey(ip)
	if lim, ok := l.clients.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.clients.Put(key, lim)
	return lim
}

// Middleware returns a gin middleware that sheds load once a client's
// token bucket is exhausted. Requests are rejected rather than queued so
// slow readers cannot pile up goroutines.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.enabled {
			c.Next()
			return
		}

		if !l.bucket(c.ClientIP()).Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("throttled").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
