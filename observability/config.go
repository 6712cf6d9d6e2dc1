package observability

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/voxkit/logger"
)

// Config configures OTLP export. Tracing and metrics share one endpoint.
type Config struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// ShutdownFunc flushes and stops the providers created by Setup.
type ShutdownFunc func(ctx context.Context) error

// Setup installs the global tracer and meter providers when cfg.Enabled.
// The returned function is always safe to call.
func Setup(ctx context.Context, cfg Config, serviceName, serviceVersion string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, cfg, serviceName, serviceVersion)
	if err != nil {
		return noop, err
	}
	mp, err := InitMeter(ctx, cfg, serviceName, serviceVersion)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noop, err
	}

	logger.Info("telemetry export enabled", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
		"interval", cfg.Interval.String(),
	))
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
