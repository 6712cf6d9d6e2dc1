package component

import (
	"context"

	"github.com/kbukum/voxkit/observability"
)

// Component is a lifecycle-managed service.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health of the component.
	Health(ctx context.Context) observability.Health
}

// Optional is implemented by components whose failure degrades the
// service instead of taking it down.
type Optional interface {
	Optional() bool
}

func isOptional(c Component) bool {
	o, ok := c.(Optional)
	return ok && o.Optional()
}
