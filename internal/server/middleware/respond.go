package middleware

import (
	"github.com/gin-gonic/gin"

	"auth-service/internal/logger"
	"auth-service/internal/platform/autherr"
)

// APIError is the body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps APIError as {"error":{...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// AbortWithError resolves err against the error taxonomy and writes the
// envelope. Errors outside the taxonomy are logged with full detail and
// answered with a generic 500.
func AbortWithError(c *gin.Context, log *logger.Logger, err error) {
	resolved := autherr.Resolve(err)
	if resolved.Status >= 500 && log != nil {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(resolved.Status, ErrorEnvelope{
		Error: APIError{Code: resolved.Code, Message: resolved.Message},
	})
}
