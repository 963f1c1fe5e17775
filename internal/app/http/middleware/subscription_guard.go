package middleware

import (
	"net/http"
	"time"

	"ta3lem-app/database"
	"ta3lem-app/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
)

// RequireActiveSubscription guards routes that only make sense for
// subscribers. Course access itself goes through the access evaluator,
// not this guard.
func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var n int64
		err := database.DB.Model(&subscriptions.UserSubscription{}).
			Where("user_id = ? AND status IN ? AND current_period_end > ?",
				userID,
				[]subscriptions.Status{subscriptions.StatusActive, subscriptions.StatusTrial},
				time.Now()).
			Count(&n).Error
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check subscription"})
			return
		}
		if n == 0 {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "An active subscription is required"})
			return
		}

		c.Next()
	}
}
