package telemetry

import (
	"context"
	"encoding/json"
	"time"
)

// Terminal states carried by events.
const (
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Event describes one request reaching a terminal state.
type Event struct {
	RequestID    string         `json:"request_id"`
	State        string         `json:"state"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Message      string         `json:"message,omitempty"`
	Duration     time.Duration  `json:"-"`
	Model        string         `json:"model,omitempty"`
	Fallback     bool           `json:"fallback"`
	Degraded     bool           `json:"degraded"`
	SourceFormat string         `json:"source_format,omitempty"`
	ConvertedTo  string         `json:"converted_to,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// Failed reports whether the event records a failure.
func (e Event) Failed() bool {
	return e.State == StateFailed
}

// MarshalJSON renders Duration as duration_ms.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(struct {
		alias
		DurationMs int64 `json:"duration_ms"`
	}{alias: alias(e), DurationMs: e.Duration.Milliseconds()})
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })
