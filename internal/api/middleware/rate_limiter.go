package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/api/handlers/common"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a limiter allowing requestsPerMinute per key
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 5
	}
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    requestsPerMinute,
	}
}

func (l *IPRateLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// Allow takes a token for key
func (l *IPRateLimiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// Limit returns middleware that rate limits by IP
func (l *IPRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			common.RespondTooManyRequests(c, "Too many requests. Please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
