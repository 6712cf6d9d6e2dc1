package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider kinds to factories and caches built instances by
// key. Construction for a key runs at most once at a time: concurrent
// callers asking for the same key wait for the single in-flight build and
// share its instance. Failed builds are not cached.
type Registry[T Provider] struct {
	mu        sync.Mutex
	factories map[string]Factory[T]
	instances map[string]*entry[T]
}

type entry[T Provider] struct {
	kind  string
	done  chan struct{}
	value T
	err   error
}

// NewRegistry creates an empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]Factory[T]),
		instances: make(map[string]*entry[T]),
	}
}

// RegisterFactory registers the factory for kind, replacing any previous one.
func (r *Registry[T]) RegisterFactory(kind string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// HasFactory reports whether a factory is registered for kind.
func (r *Registry[T]) HasFactory(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[kind]
	return ok
}

// ErrUnknownKind is wrapped by GetOrCreate when no factory matches.
var ErrUnknownKind = errors.New("provider factory not registered")

// GetOrCreate returns the instance cached under key, building it with the
// factory for kind when absent. The build is detached from ctx so a caller
// giving up does not abort it for the others waiting; ctx only bounds how
// long this caller waits. created reports whether this call ran the build.
func (r *Registry[T]) GetOrCreate(ctx context.Context, kind, key string, cfg map[string]any) (inst T, created bool, err error) {
	r.mu.Lock()
	e, ok := r.instances[key]
	if !ok {
		factory, known := r.factories[kind]
		if !known {
			r.mu.Unlock()
			return inst, false, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		e = &entry[T]{kind: kind, done: make(chan struct{})}
		r.instances[key] = e
		created = true
		go r.build(context.WithoutCancel(ctx), key, e, factory, cfg)
	}
	r.mu.Unlock()

	select {
	case <-e.done:
		return e.value, created, e.err
	case <-ctx.Done():
		return inst, created, ctx.Err()
	}
}

func (r *Registry[T]) build(ctx context.Context, key string, e *entry[T], factory Factory[T], cfg map[string]any) {
	defer close(e.done)
	defer func() {
		if p := recover(); p != nil {
			e.err = fmt.Errorf("provider factory %q panicked: %v", e.kind, p)
			r.forget(key, e)
		}
	}()

	e.value, e.err = factory(ctx, cfg)
	if e.err != nil {
		r.forget(key, e)
	}
}

func (r *Registry[T]) forget(key string, e *entry[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instances[key] == e {
		delete(r.instances, key)
	}
}

// Get returns the completed instance cached under key.
func (r *Registry[T]) Get(key string) (T, bool) {
	r.mu.Lock()
	e, ok := r.instances[key]
	r.mu.Unlock()
	var zero T
	if !ok {
		return zero, false
	}
	select {
	case <-e.done:
		if e.err != nil {
			return zero, false
		}
		return e.value, true
	default:
		return zero, false
	}
}

// Evict drops the completed instance cached under key and returns it so the
// caller can release its resources. In-flight builds are left alone.
func (r *Registry[T]) Evict(key string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	e, ok := r.instances[key]
	if !ok {
		return zero, false
	}
	select {
	case <-e.done:
		if e.err != nil {
			return zero, false
		}
		delete(r.instances, key)
		return e.value, true
	default:
		return zero, false
	}
}

// Kinds returns the sorted kinds with a registered factory.
func (r *Registry[T]) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Keys returns the sorted keys of completed instances.
func (r *Registry[T]) Keys() []string {
	r.mu.Lock()
	keys := make([]string, 0, len(r.instances))
	for k := range r.instances {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	ready := keys[:0]
	for _, k := range keys {
		if _, ok := r.Get(k); ok {
			ready = append(ready, k)
		}
	}
	sort.Strings(ready)
	return ready
}
