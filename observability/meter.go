package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global one.
func InitMeter(ctx context.Context, cfg Config, serviceName, serviceVersion string) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(serviceName, serviceVersion)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns the module's meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the transcription instruments.
type Metrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	active       metric.Int64UpDownCounter
	fallbacks    metric.Int64Counter
	conversions  metric.Int64Counter
	modelLoads   metric.Int64Counter
	modelLoadDur metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.requests, err = meter.Int64Counter("voxkit.requests",
		metric.WithDescription("Transcription requests by terminal state")); err != nil {
		return nil, fmt.Errorf("creating voxkit.requests: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("voxkit.request.duration",
		metric.WithDescription("End-to-end transcription latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating voxkit.request.duration: %w", err)
	}
	if m.active, err = meter.Int64UpDownCounter("voxkit.requests.active",
		metric.WithDescription("Transcription requests in progress")); err != nil {
		return nil, fmt.Errorf("creating voxkit.requests.active: %w", err)
	}
	if m.fallbacks, err = meter.Int64Counter("voxkit.fallbacks",
		metric.WithDescription("Fallback model substitutions by triggering error code")); err != nil {
		return nil, fmt.Errorf("creating voxkit.fallbacks: %w", err)
	}
	if m.conversions, err = meter.Int64Counter("voxkit.audio.conversions",
		metric.WithDescription("Audio format conversions")); err != nil {
		return nil, fmt.Errorf("creating voxkit.audio.conversions: %w", err)
	}
	if m.modelLoads, err = meter.Int64Counter("voxkit.model.loads",
		metric.WithDescription("Model constructions by outcome")); err != nil {
		return nil, fmt.Errorf("creating voxkit.model.loads: %w", err)
	}
	if m.modelLoadDur, err = meter.Float64Histogram("voxkit.model.load.duration",
		metric.WithDescription("Model construction latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating voxkit.model.load.duration: %w", err)
	}
	return m, nil
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RecordRequestEnd records a finished request in its terminal state.
func (m *Metrics) RecordRequestEnd(ctx context.Context, model, state string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("model", model), attribute.String("state", state))
	m.active.Add(ctx, -1)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordFallback records a switch from primary to fallback model.
func (m *Metrics) RecordFallback(ctx context.Context, from, to, code string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("error_code", code),
	))
}

// RecordConversion records an audio conversion attempt.
func (m *Metrics) RecordConversion(ctx context.Context, from, to string, ok bool) {
	m.conversions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.Bool("ok", ok),
	))
}

// RecordModelLoad records a model construction.
func (m *Metrics) RecordModelLoad(ctx context.Context, kind string, ok bool, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.Bool("ok", ok))
	m.modelLoads.Add(ctx, 1, attrs)
	m.modelLoadDur.Record(ctx, d.Seconds(), attrs)
}
