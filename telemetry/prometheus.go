package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink counts events and observes their latency.
type PrometheusSink struct {
	requests  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxkit_transcriptions_total",
				Help: "Transcription requests by terminal state, model and error code",
			},
			[]string{"state", "model", "error_code"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxkit_transcription_fallbacks_total",
				Help: "Requests that switched to a fallback model, by outcome",
			},
			[]string{"state"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voxkit_transcription_duration_seconds",
				Help:    "End-to-end transcription latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"state"},
		),
	}
	for _, c := range []prometheus.Collector{s.requests, s.fallbacks, s.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering telemetry collector: %w", err)
		}
	}
	return s, nil
}

// Emit records e.
func (s *PrometheusSink) Emit(_ context.Context, e Event) error {
	s.requests.WithLabelValues(e.State, e.Model, e.ErrorCode).Inc()
	s.duration.WithLabelValues(e.State).Observe(e.Duration.Seconds())
	if e.Fallback {
		s.fallbacks.WithLabelValues(e.State).Inc()
	}
	return nil
}
