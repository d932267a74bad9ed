package middleware

import (
	"time"

	"telechat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs each HTTP request with timing and status
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.LogRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.ClientIP(),
			c.Request.UserAgent(),
			time.Since(start),
			c.Writer.Status(),
		)
	}
}
