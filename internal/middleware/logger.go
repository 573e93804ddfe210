package middleware

import (
	"log/slog"
	"time"

	"backoffice/internal/common"

	"github.com/gin-gonic/gin"
)

// Logger logs one structured line per request. The SSE stream is logged
// when the client disconnects.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"ip", c.ClientIP(),
			"request_id", c.GetString(common.RequestIDKey),
		}

		switch {
		case status >= 500:
			slog.Error("request", attrs...)
		case status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	}
}
