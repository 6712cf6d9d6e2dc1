package provider

import "context"

// Status represents the health of a provider.
type Status int

const (
	// StatusHealthy means the provider is fully operational.
	StatusHealthy Status = iota
	// StatusDegraded means the provider works with reduced capability.
	StatusDegraded
	// StatusUnavailable means the provider cannot serve requests.
	StatusUnavailable
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HealthStatus is a detailed health report.
type HealthStatus struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthChecker is implemented by providers that report more than the
// IsAvailable boolean.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// CheckHealth returns p's detailed health when it implements HealthChecker
// and otherwise derives it from IsAvailable.
func CheckHealth(ctx context.Context, p Provider) HealthStatus {
	if hc, ok := p.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	if p.IsAvailable(ctx) {
		return HealthStatus{Status: StatusHealthy}
	}
	return HealthStatus{Status: StatusUnavailable, Message: p.Name() + " is not available"}
}
