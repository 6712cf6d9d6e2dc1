package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures []error
	writes   int
	messages []kafkago.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	if len(w.failures) > 0 {
		err := w.failures[0]
		w.failures = w.failures[1:]
		return err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Stats() kafkago.WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return kafkago.WriterStats{Writes: int64(w.writes), Topic: "events"}
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishRetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{failures: []error{kafkago.LeaderNotAvailable, errors.New("dial tcp 10.0.0.1:9092: connection refused")}}
	p := NewProducerWithWriter(Config{Topic: "events", Retries: 3}, w, logger.Nop())

	err := p.Publish(context.Background(), "req-1", []byte(`{"state":"succeeded"}`), map[string]string{"event-type": "transcription.succeeded"})
	if err != nil {
		t.Fatal(err)
	}
	if w.writes != 3 {
		t.Errorf("writes = %d, want 3", w.writes)
	}
	if len(w.messages) != 1 || string(w.messages[0].Key) != "req-1" {
		t.Fatalf("messages = %+v", w.messages)
	}
	if h := w.messages[0].Headers; len(h) != 1 || h[0].Key != "event-type" {
		t.Errorf("headers = %+v", h)
	}
	if st := p.Stats(); st.Writes != 3 || st.Published != 1 || st.Failed != 0 {
		t.Errorf("Stats() = %+v", st)
	}
	if h := p.Health(context.Background()); h.Status != provider.StatusHealthy {
		t.Errorf("Health() = %+v", h)
	}
}

func TestProducer_PermanentErrorNotRetried(t *testing.T) {
	w := &fakeWriter{failures: []error{kafkago.TopicAuthorizationFailed}}
	p := NewProducerWithWriter(Config{Topic: "events", Retries: 5}, w, logger.Nop())

	if err := p.Publish(context.Background(), "k", []byte("v"), nil); !errors.Is(err, kafkago.TopicAuthorizationFailed) {
		t.Fatalf("err = %v", err)
	}
	if w.writes != 1 {
		t.Errorf("writes = %d, want 1", w.writes)
	}
	if st := p.Stats(); st.Failed != 1 {
		t.Errorf("Stats().Failed = %d, want 1", st.Failed)
	}
	if h := p.Health(context.Background()); h.Status != provider.StatusDegraded || h.Message == "" {
		t.Errorf("Health() after failure = %+v", h)
	}

	if err := p.Publish(context.Background(), "k", []byte("v"), nil); err != nil {
		t.Fatal(err)
	}
	if h := p.Health(context.Background()); h.Status != provider.StatusHealthy {
		t.Errorf("Health() after recovery = %+v", h)
	}
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(Config{}, w, logger.Nop())
	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("Close() = %v, closed %v", err, w.closed)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := p.Publish(context.Background(), "k", nil, nil); err == nil {
		t.Error("publish after close should fail")
	}
	if h := p.Health(context.Background()); h.Status != provider.StatusUnavailable {
		t.Errorf("Health() after close = %+v", h)
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Topic != "voxkit.transcriptions" || c.Retries != 3 || c.RequiredAcks != -1 {
		t.Errorf("defaults = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}

	c.Enabled = true
	c.EnableSASL = true
	c.SASLMechanism = "GSSAPI"
	if err := c.Validate(); err == nil {
		t.Error("unsupported SASL mechanism should fail")
	}
	c.SASLMechanism = "SCRAM-SHA-512"
	if err := c.Validate(); err == nil {
		t.Error("SASL without username should fail")
	}
	c.Username = "voxkit"
	c.Password = "secret"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	w, err := newWriter(c, nil)
	if err != nil {
		t.Fatalf("newWriter() = %v", err)
	}
	if w.Topic != c.Topic || w.Compression != kafkago.Snappy {
		t.Errorf("writer topic %q compression %v", w.Topic, w.Compression)
	}

	c.Compression = "brotli"
	if err := c.Validate(); err == nil {
		t.Error("unknown compression should fail")
	}
}

func TestNewProducer_Disabled(t *testing.T) {
	if _, err := NewProducer(Config{}, nil); err == nil {
		t.Error("disabled config should not build a producer")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{kafkago.LeaderNotAvailable, true},
		{kafkago.NotEnoughReplicas, true},
		{kafkago.MessageSizeTooLarge, false},
		{kafkago.UnknownTopicOrPartition, true},
		{kafkago.TopicAuthorizationFailed, false},
		{errors.New("read tcp: i/o timeout"), true},
		{errors.New("something odd"), false},
		{kafkago.WriteErrors{kafkago.LeaderNotAvailable, nil}, true},
		{kafkago.WriteErrors{kafkago.TopicAuthorizationFailed}, false},
	}
	for _, tt := range tests {
		if got := IsRetryableError(tt.err); got != tt.want {
			t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
