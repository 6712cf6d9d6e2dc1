package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/observability"
)

// Readiness answers Kubernetes readiness probes: not ready while the
// service is down.
func Readiness(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			if sh := checker(c.Request.Context()); sh.Status == observability.HealthStatusDown {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
