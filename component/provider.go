package component

import (
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/provider"
)

// FromProviderHealth maps a provider health report onto the component
// health reported by /health.
func FromProviderHealth(name string, h provider.HealthStatus) observability.Health {
	status := observability.HealthStatusUp
	switch h.Status {
	case provider.StatusDegraded:
		status = observability.HealthStatusDegraded
	case provider.StatusUnavailable:
		status = observability.HealthStatusDown
	}
	return observability.Health{Name: name, Status: status, Message: h.Message, Details: h.Details}
}
