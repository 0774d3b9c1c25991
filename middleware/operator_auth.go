package middleware

import (
	"net/http"
	"strings"

	"busmitra/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OperatorAuthMiddleware guards the human-in-the-loop API. It expects a
// Bearer JWT carrying the operator role.
func OperatorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := utils.GetLogger()

		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		operatorID, err := utils.ExtractOperatorID(tokenString)
		if err != nil {
			logger.Warn("Operator auth failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("operatorID", operatorID)
		c.Next()
	}
}
