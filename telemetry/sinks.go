package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/kbukum/voxkit/logger"
)

// Multi fans an event out to every sink. All sinks are called even when
// some fail; the failures are joined.
func Multi(sinks ...Sink) Sink {
	flat := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			flat = append(flat, s)
		}
	}
	return multiSink(flat)
}

type multiSink []Sink

func (m multiSink) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to a structured logger: successes at info, failures
// at warn.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("telemetry")}
}

// Emit logs e.
func (s *LogSink) Emit(ctx context.Context, e Event) error {
	fields := logger.Fields(
		logger.FieldRequestID, e.RequestID,
		logger.FieldState, e.State,
		logger.FieldModel, e.Model,
		logger.FieldDuration, e.Duration.Milliseconds(),
		"fallback", e.Fallback,
		"degraded", e.Degraded,
	)
	if e.SourceFormat != "" {
		fields[logger.FieldFormat] = e.SourceFormat
	}
	if e.ConvertedTo != "" {
		fields["converted_to"] = e.ConvertedTo
	}
	for k, v := range e.Attributes {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}

	log := s.log.WithContext(ctx)
	if e.Failed() {
		fields[logger.FieldErrorCode] = e.ErrorCode
		fields[logger.FieldError] = e.Message
		log.Warn("transcription failed", fields)
		return nil
	}
	log.Info("transcription succeeded", fields)
	return nil
}

// Recorder keeps events in memory. It is meant for tests and for the CLI,
// which prints the last event on failure.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends e.
func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
