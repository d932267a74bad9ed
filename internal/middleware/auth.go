package middleware

import (
	"strings"

	"telechat/internal/utils"

	"github.com/gin-gonic/gin"
)

// Auth validates the bearer token and stores the caller's identity in
// the request context. WebSocket clients may pass the token as a query
// parameter since browsers cannot set headers on upgrade requests.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if token := c.Query("token"); token != "" {
				authHeader = "Bearer " + token
			} else {
				utils.UnauthorizedResponse(c, "Missing authorization token")
				c.Abort()
				return
			}
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.UnauthorizedResponse(c, "Invalid token format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// GetUserID returns the authenticated caller's id from the context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetUsername returns the authenticated caller's username
func GetUsername(c *gin.Context) string {
	return c.GetString("username")
}
