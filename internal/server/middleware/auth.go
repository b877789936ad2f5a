package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"auth-service/internal/logger"
	"auth-service/internal/platform/autherr"
	"auth-service/internal/security"
)

const bearerPrefix = "bearer "

// RequireBearer validates the access token in the Authorization header and
// stores its subject and email in the request context. Requests without a
// valid token are answered with 401 unauthenticated.
func RequireBearer(tokens *security.TokenCodec, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, log, autherr.ErrUnauthenticated)
			return
		}
		claims, err := tokens.ValidateAccess(raw)
		if err != nil || claims.Subject == "" {
			AbortWithError(c, log, autherr.ErrUnauthenticated)
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), claims.Subject, claims.Email))
		c.Next()
	}
}

// extractBearer returns the token of a "Bearer <token>" header, matching the
// scheme case-insensitively, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
