package middlewares

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/chopdirect/order-engine/utils"
)

// InternalAuthMiddleware guards service-to-service endpoints such as
// driver assignment and payment callbacks. Callers present a shared
// credential in X-Internal-Token, not an end-user identity.
func InternalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := os.Getenv("INTERNAL_API_TOKEN")
		if expected == "" {
			utils.RespondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "internal endpoints are not configured", nil)
			c.Abort()
			return
		}

		token := c.GetHeader("X-Internal-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			utils.RespondError(c, http.StatusForbidden, "FORBIDDEN", "invalid internal credential", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
