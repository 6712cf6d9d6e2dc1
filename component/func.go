package component

import (
	"context"

	"github.com/kbukum/voxkit/observability"
)

// Funcs builds a Component from closures. Nil closures are no-ops and a
// nil health closure reports up.
type Funcs struct {
	ComponentName string
	IsOptional    bool
	OnStart       func(ctx context.Context) error
	OnStop        func(ctx context.Context) error
	OnHealth      func(ctx context.Context) observability.Health
}

var _ Component = (*Funcs)(nil)

// Name returns ComponentName.
func (f *Funcs) Name() string { return f.ComponentName }

// Optional reports IsOptional.
func (f *Funcs) Optional() bool { return f.IsOptional }

// Start calls OnStart.
func (f *Funcs) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

// Stop calls OnStop.
func (f *Funcs) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

// Health calls OnHealth and fills in the component name.
func (f *Funcs) Health(ctx context.Context) observability.Health {
	if f.OnHealth == nil {
		return observability.Health{Name: f.ComponentName, Status: observability.HealthStatusUp}
	}
	h := f.OnHealth(ctx)
	if h.Name == "" {
		h.Name = f.ComponentName
	}
	return h
}
