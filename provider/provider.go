package provider

import "context"

// Provider is the base interface every pluggable backend implements.
type Provider interface {
	// Name returns the provider's name.
	Name() string
	// IsAvailable reports whether the provider can serve requests right now.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from its configuration. The context bounds the
// construction work, such as loading weights or dialing a sidecar.
type Factory[T Provider] func(ctx context.Context, cfg map[string]any) (T, error)

// Closeable is implemented by providers that hold resources needing
// explicit release when evicted from a registry.
type Closeable interface {
	Close(ctx context.Context) error
}
