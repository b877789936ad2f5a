package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness answers GET /healthz. It never touches dependencies.
func Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness answers GET /readyz with 200 when every probe passes and 503 otherwise.
func Readiness(checker *Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := checker.Ready(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": report})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": report})
	}
}
