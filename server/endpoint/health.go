package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/observability"
)

// HealthChecker returns the aggregated health of the service.
type HealthChecker func(ctx context.Context) *observability.ServiceHealth

// Health reports the service and component health. A down service
// answers 503; degraded still answers 200.
func Health(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(service, "")
		if checker != nil {
			sh = checker(c.Request.Context())
		}

		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": sh.Components,
		})
	}
}
