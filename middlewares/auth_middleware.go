package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chopdirect/order-engine/utils"
)

// AuthMiddleware resolves the verified caller identity from the bearer
// token and stores it in the request context. The engine trusts the
// token contents; issuing and revoking credentials happens upstream.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header missing", nil)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", nil)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// CallerID returns the verified identity set by AuthMiddleware.
func CallerID(c *gin.Context) string {
	return c.GetString("user_id")
}
