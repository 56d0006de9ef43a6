package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "X-Idempotency-Key"
	idempotencyTTL    = 30 * time.Second
)

// Idempotence drops duplicate mutating requests that carry the same
// idempotency key within a short window. The key is optional; clients that
// omit it simply get no protection against their own retries.
func Idempotence(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if key == "" || len(key) > 128 {
			c.Next()
			return
		}

		// Runs before auth, so the caller is identified by IP here.
		ctx := c.Request.Context()
		redisKey := fmt.Sprintf("nomia:idem:%s:%s:%s", c.ClientIP(), c.FullPath(), key)

		ok, err := rdb.SetNX(ctx, redisKey, 1, idempotencyTTL).Result()
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"ok":      0,
				"code":    http.StatusConflict,
				"message": "duplicate request, original still in flight or recently completed",
			})
			return
		}

		c.Next()
	}
}
