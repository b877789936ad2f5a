package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"auth-service/internal/logger"
)

// RecordClientIP records the caller's address in the request context so audit
// entries written deep in the flows can read it. gin resolves
// X-Forwarded-For and X-Real-IP against the engine's trusted proxies.
func RecordClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ip := c.ClientIP(); ip != "" {
			c.Request = c.Request.WithContext(WithClientIP(c.Request.Context(), ip))
		}
		c.Next()
	}
}

// Timeout bounds the I/O of every request. d <= 0 disables it.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request at a level chosen by status.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ClientIP(c.Request.Context()),
		}
		if id, ok := IdentityID(c.Request.Context()); ok {
			fields = append(fields, "identity_id", id)
		}

		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}
