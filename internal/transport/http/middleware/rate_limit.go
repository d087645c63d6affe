package middleware

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"lexhub/internal/cache"
	"lexhub/internal/transport/http/response"
)

// RequestLimiter decides whether a subject may make another request in
// the current window.
type RequestLimiter interface {
	Allow(ctx context.Context, subject, class string) (cache.Decision, error)
}

// RateLimit counts requests per authenticated user, falling back to the
// client IP for anonymous routes. Limiter errors fail open.
func RateLimit(limiter RequestLimiter, class string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.ClientIP()
		if userID, ok := UserID(c); ok {
			subject = fmt.Sprintf("u%d", userID)
		}

		decision, err := limiter.Allow(c.Request.Context(), subject, class)
		if err != nil {
			log.Printf("rate limit check failed for %s: %v", subject, err)
		}
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.Error(c, 429, response.CodeRateLimited, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
