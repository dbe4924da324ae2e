package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"viral-kid-platform/internal/config"
	"viral-kid-platform/utils"
)

// RateLimitMiddleware implements fixed-window rate limiting in Redis,
// keyed by IP + endpoint. The webhook endpoint is exempt — Meta
// controls that traffic and a 429 would trigger redelivery.
func RateLimitMiddleware(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "/health" || path == "/api/instagram/webhook" {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + ":" + path

		ctx := context.Background()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Fail open - don't block requests if Redis is down
			c.Next()
			return
		}

		if count == 1 {
			rdb.Expire(ctx, key, time.Duration(cfg.RateLimitWindow)*time.Second)
		}

		if count > int64(cfg.RateLimitReqs) {
			c.Header("Retry-After", strconv.Itoa(cfg.RateLimitWindow))
			utils.RespondWithError(c, http.StatusTooManyRequests, "rate_limited",
				"Too many requests, slow down", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
