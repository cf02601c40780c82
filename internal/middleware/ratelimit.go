package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qoffice/dispatcher/internal/auth"
)

// RateLimit rejects requests beyond limit-per-minute from the same
// client IP with a 429, per the rateLimit.public/rateLimit.auth
// buckets of §6.5.
func RateLimit(limiter *auth.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"code": "RateLimited", "message": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewBucketLimiter builds a RateLimiter for a one-minute window from a
// requests-per-minute config value.
func NewBucketLimiter(requestsPerMinute int) *auth.RateLimiter {
	return auth.NewRateLimiter(requestsPerMinute, time.Minute)
}
