package server

import (
	"context"

	"github.com/kbukum/voxkit/component"
	"github.com/kbukum/voxkit/observability"
)

const componentName = "http-server"

var _ component.Component = (*ServerComponent)(nil)

// ServerComponent manages a Server's lifecycle.
type ServerComponent struct {
	server *Server
}

// NewComponent wraps s as a component.Component.
func NewComponent(s *Server) *ServerComponent {
	return &ServerComponent{server: s}
}

// Name returns "http-server".
func (sc *ServerComponent) Name() string { return componentName }

// Start starts the server.
func (sc *ServerComponent) Start(ctx context.Context) error {
	return sc.server.Start(ctx)
}

// Stop shuts the server down.
func (sc *ServerComponent) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

// Health is up while the server is serving.
func (sc *ServerComponent) Health(_ context.Context) observability.Health {
	if sc.server.Running() {
		return observability.Health{
			Name:    componentName,
			Status:  observability.HealthStatusUp,
			Details: map[string]any{"addr": sc.server.Addr()},
		}
	}
	return observability.Health{
		Name:    componentName,
		Status:  observability.HealthStatusDown,
		Message: "HTTP server not running",
	}
}
