package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/bootstrap"
	"github.com/kbukum/voxkit/component"
	"github.com/kbukum/voxkit/kafka"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/orchestrator"
	"github.com/kbukum/voxkit/telemetry"
	"github.com/kbukum/voxkit/transcription"
	"github.com/kbukum/voxkit/transcription/mock"
	"github.com/kbukum/voxkit/transcription/whisper"
)

// runtime is the wired service shared by transcribe and serve.
type runtime struct {
	app      *bootstrap.App[*AppConfig]
	orch     *orchestrator.Orchestrator
	registry *transcription.Registry
	resolver *audio.Resolver
	gatherer *prometheus.Registry
}

func newRuntime(ctx context.Context, cfg *AppConfig) (*runtime, error) {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	log := app.Logger
	// Backends built by registry factories look their logger up by name.
	logger.Register("whisper", log.WithComponent("whisper"))

	shutdown, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("observability setup: %w", err)
	}
	app.OnStop(func(ctx context.Context) error { return shutdown(ctx) })

	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	registry := transcription.NewRegistry(
		transcription.WithRegistryMetrics(metrics),
		transcription.WithRegistryLogger(log),
	)
	mock.Register(registry)
	whisper.Register(registry)

	resolver := audio.NewResolver(cfg.Audio, audio.WithMetrics(metrics), audio.WithLogger(log))

	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := telemetry.NewPrometheusSink(gatherer)
	if err != nil {
		return nil, fmt.Errorf("prometheus sink: %w", err)
	}
	sinks := []telemetry.Sink{telemetry.NewLogSink(log), promSink}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, telemetry.NewKafkaSink(producer))
		if err := app.RegisterComponent(kafkaComponent(producer)); err != nil {
			return nil, err
		}
	}

	orch, err := orchestrator.New(cfg.Orchestrator, registry, resolver,
		orchestrator.WithSink(telemetry.Multi(sinks...)),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	// Audio is optional: WAV input needs neither ffmpeg nor ffprobe.
	if err := app.RegisterComponent(&component.Funcs{
		ComponentName: "audio",
		IsOptional:    true,
		OnHealth: func(ctx context.Context) observability.Health {
			return component.FromProviderHealth("audio", resolver.Health(ctx))
		},
	}); err != nil {
		return nil, err
	}
	if err := app.RegisterComponent(&component.Funcs{
		ComponentName: "models",
		OnStop:        registry.Close,
		OnHealth: func(ctx context.Context) observability.Health {
			return component.FromProviderHealth("models", registry.Health(ctx))
		},
	}); err != nil {
		return nil, err
	}

	return &runtime{
		app:      app,
		orch:     orch,
		registry: registry,
		resolver: resolver,
		gatherer: gatherer,
	}, nil
}

func kafkaComponent(p *kafka.Producer) component.Component {
	return &component.Funcs{
		ComponentName: "kafka",
		IsOptional:    true,
		OnStop:        func(context.Context) error { return p.Close() },
		OnHealth: func(ctx context.Context) observability.Health {
			return component.FromProviderHealth("kafka", p.Health(ctx))
		},
	}
}
