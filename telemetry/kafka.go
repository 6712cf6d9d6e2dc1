package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher sends one keyed message. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaSink publishes events as JSON, keyed by request id.
type KafkaSink struct {
	pub Publisher
}

// NewKafkaSink creates a KafkaSink on pub.
func NewKafkaSink(pub Publisher) *KafkaSink {
	return &KafkaSink{pub: pub}
}

// Emit publishes e.
func (s *KafkaSink) Emit(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	headers := map[string]string{
		"event-type":   "voxkit.transcription." + e.State,
		"content-type": "application/json",
	}
	if e.ErrorCode != "" {
		headers["error-code"] = e.ErrorCode
	}
	if err := s.pub.Publish(ctx, e.RequestID, payload, headers); err != nil {
		return fmt.Errorf("publishing event %s: %w", e.RequestID, err)
	}
	return nil
}
