package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"wastewise-be/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const issueLimitWindow = 24 * time.Hour

// IssueRateLimiter allows each user limit issue reports per day. The window
// starts with the user's first report and is kept in the counter's TTL.
// Requests the handler rejects are refunded.
func IssueRateLimiter(counter cache.Cache, prefix string, limit int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		if userID == "" {
			abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}

		ctx := c.Request.Context()
		userKey := prefix + ":" + userID
		count, err := counter.Incr(ctx, userKey, issueLimitWindow)
		if err != nil {
			RequestLogger(c, logger).Error("rate limiter increment failed", zap.String("key", userKey), zap.Error(err))
			abort(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		if count > int64(limit) {
			retryAfter, err := counter.TTL(ctx, userKey)
			if err != nil {
				retryAfter = issueLimitWindow
			}
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     "Daily issue report limit reached",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()

		// only reports that were actually created count against the quota
		if c.Writer.Status() >= http.StatusBadRequest {
			if _, err := counter.Decr(ctx, userKey); err != nil {
				RequestLogger(c, logger).Warn("rate limiter refund failed", zap.String("key", userKey), zap.Error(err))
			}
		}
	}
}
