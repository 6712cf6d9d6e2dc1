package transcription

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/provider"
)

// errUnavailable is the cause attached when a model fails its health check.
var errUnavailable = stderrors.New("model unavailable")

// Handle is a model borrowed from the registry for one request. The
// registry keeps ownership of the instance.
type Handle struct {
	Model  Model
	Config ModelConfig
	// Degraded is set when the fallback model replaced a primary that could
	// not be loaded.
	Degraded bool
	// PrimaryError is the load failure that caused the substitution.
	PrimaryError *errors.AppError
}

// ModelUsed identifies the instance for result metadata.
func (h *Handle) ModelUsed() string {
	return h.Model.Name()
}

// Registry builds model instances from ModelConfigs and caches them by
// identity. Concurrent resolves of the same uncached config share one
// construction.
type Registry struct {
	providers *provider.Registry[Model]
	metrics   *observability.Metrics
	log       *logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics records model loads on m.
func WithRegistryMetrics(m *observability.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates a registry with no backends.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{providers: provider.NewRegistry[Model]()}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.WithComponent("model-registry")
	}
	return r
}

// Register adds the constructor for kind. The factory receives the model
// parameters plus ParamKind and ParamLocator.
func (r *Registry) Register(kind string, factory provider.Factory[Model]) {
	r.providers.RegisterFactory(kind, r.instrument(kind, factory))
}

// Kinds returns the registered backend kinds.
func (r *Registry) Kinds() []string {
	return r.providers.Kinds()
}

// instrument times every construction and logs its outcome.
func (r *Registry) instrument(kind string, factory provider.Factory[Model]) provider.Factory[Model] {
	return func(ctx context.Context, cfg map[string]any) (Model, error) {
		start := time.Now()
		m, err := factory(ctx, cfg)
		d := time.Since(start)
		if r.metrics != nil {
			r.metrics.RecordModelLoad(ctx, kind, err == nil, d)
		}
		fields := logger.Fields("kind", kind, "locator", cfg[ParamLocator], logger.FieldDuration, d.Milliseconds())
		if err != nil {
			r.log.Error("model construction failed", fields, logger.Fields(logger.FieldError, err.Error()))
			return m, err
		}
		r.log.Info("model constructed", fields)
		return m, nil
	}
}

// Resolve returns the cached instance for cfg, constructing it on a miss.
// A cached instance failing its health check is evicted and rebuilt once.
// Construction or health failures are MODEL_LOAD errors.
func (r *Registry) Resolve(ctx context.Context, cfg ModelConfig) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanModelLoad)
	defer span.End()

	m, created, err := r.get(ctx, cfg)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	if m.IsAvailable(ctx) {
		return &Handle{Model: m, Config: cfg}, nil
	}

	r.log.WithContext(ctx).Warn("model failed health check, evicting", logger.Fields(logger.FieldModel, cfg.Identity()))
	r.evict(ctx, cfg.Identity())
	if !created {
		if m, _, err = r.get(ctx, cfg); err != nil {
			observability.SetSpanError(ctx, err)
			return nil, err
		}
		if m.IsAvailable(ctx) {
			return &Handle{Model: m, Config: cfg}, nil
		}
		r.evict(ctx, cfg.Identity())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Canceled("model load").WithCause(ctxErr)
	}
	err = errors.ModelLoad(cfg.Kind, cfg.Locator, errUnavailable).WithDetail("reason", errUnavailable.Error())
	observability.SetSpanError(ctx, err)
	return nil, err
}

func (r *Registry) get(ctx context.Context, cfg ModelConfig) (Model, bool, error) {
	m, created, err := r.providers.GetOrCreate(ctx, cfg.Kind, cfg.Identity(), cfg.factoryConfig())
	if err == nil {
		return m, created, nil
	}
	switch {
	case ctx.Err() != nil:
		return nil, false, errors.Canceled("model load").WithCause(err)
	case stderrors.Is(err, provider.ErrUnknownKind):
		return nil, false, errors.ModelLoad(cfg.Kind, cfg.Locator, err).
			WithDetail("reason", fmt.Sprintf("no backend registered for kind %q", cfg.Kind))
	}
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeModelLoad {
		return nil, false, appErr
	}
	return nil, false, errors.ModelLoad(cfg.Kind, cfg.Locator, err)
}

// ResolveWithFallback resolves primary. When that fails with MODEL_LOAD,
// fallback is set and primary permits it, the fallback model is resolved
// instead and the handle is marked degraded. If the fallback fails too its
// error is returned with the primary error attached as Prior.
func (r *Registry) ResolveWithFallback(ctx context.Context, primary ModelConfig, fallback *ModelConfig) (*Handle, error) {
	h, err := r.Resolve(ctx, primary)
	if err == nil {
		return h, nil
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeModelLoad || !primary.FallbackEnabled ||
		fallback == nil || fallback.IsZero() || fallback.Identity() == primary.Identity() {
		return nil, err
	}

	r.log.WithContext(ctx).Warn("primary model unavailable, resolving fallback", logger.Fields(
		logger.FieldModel, primary.Identity(), "fallback", fallback.Identity(), logger.FieldErrorCode, appErr.Code,
	))
	fh, ferr := r.Resolve(ctx, *fallback)
	if ferr != nil {
		if fbErr, ok := errors.AsAppError(ferr); ok {
			return nil, fbErr.WithPrior(appErr)
		}
		return nil, ferr
	}
	fh.Degraded = true
	fh.PrimaryError = appErr
	return fh, nil
}

// Evict drops the cached instance for cfg, closing it when it holds
// resources. It reports whether an instance was cached.
func (r *Registry) Evict(ctx context.Context, cfg ModelConfig) bool {
	return r.evict(ctx, cfg.Identity())
}

func (r *Registry) evict(ctx context.Context, identity string) bool {
	m, ok := r.providers.Evict(identity)
	if !ok {
		return false
	}
	if c, isCloser := m.(provider.Closeable); isCloser {
		if err := c.Close(ctx); err != nil {
			r.log.WithContext(ctx).Warn("closing evicted model failed", logger.Fields(logger.FieldModel, identity, logger.FieldError, err.Error()))
		}
	}
	return true
}

// Loaded returns the info of every cached instance, keyed by identity.
func (r *Registry) Loaded() map[string]ModelInfo {
	out := make(map[string]ModelInfo)
	for _, key := range r.providers.Keys() {
		if m, ok := r.providers.Get(key); ok {
			out[key] = m.Info()
		}
	}
	return out
}

// Health aggregates the health of every cached instance. An empty registry
// is healthy.
func (r *Registry) Health(ctx context.Context) provider.HealthStatus {
	status := provider.HealthStatus{Status: provider.StatusHealthy, Details: map[string]any{}}
	for _, key := range r.providers.Keys() {
		m, ok := r.providers.Get(key)
		if !ok {
			continue
		}
		h := provider.CheckHealth(ctx, m)
		status.Details[key] = h
		if h.Status > status.Status {
			status.Status = h.Status
			status.Message = fmt.Sprintf("model %s is %s", key, h.Status)
		}
	}
	return status
}

// Close evicts and closes every cached instance.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, key := range r.providers.Keys() {
		m, ok := r.providers.Evict(key)
		if !ok {
			continue
		}
		if c, isCloser := m.(provider.Closeable); isCloser {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", key, err))
			}
		}
	}
	return stderrors.Join(errs...)
}
