package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/resilience"
)

// MessageWriter is the subset of *kafkago.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer publishes keyed messages to one topic, retrying transient
// broker errors.
type Producer struct {
	writer MessageWriter
	cfg    Config
	log    *logger.Logger

	mu     sync.RWMutex
	closed bool

	published atomic.Int64
	failed    atomic.Int64
	lastErr   atomic.Pointer[string]
}

// NewProducer creates a producer for cfg.Topic.
func NewProducer(cfg Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}

	p := &Producer{cfg: cfg, log: componentLogger(log)}
	w, err := newWriter(cfg, kafkago.LoggerFunc(func(msg string, args ...interface{}) {
		p.log.Error("writer: " + fmt.Sprintf(msg, args...))
	}))
	if err != nil {
		return nil, fmt.Errorf("kafka writer: %w", err)
	}
	p.writer = w

	p.log.Info("kafka producer ready", logger.Fields(
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"compression", cfg.Compression,
	))
	return p, nil
}

// NewProducerWithWriter creates a producer on an existing writer.
func NewProducerWithWriter(cfg Config, w MessageWriter, log *logger.Logger) *Producer {
	cfg.ApplyDefaults()
	return &Producer{writer: w, cfg: cfg, log: componentLogger(log)}
}

func componentLogger(log *logger.Logger) *logger.Logger {
	if log == nil {
		log = logger.Nop()
	}
	return log.WithComponent("kafka.producer")
}

// Topic returns the destination topic.
func (p *Producer) Topic() string {
	return p.cfg.Topic
}

// Publish sends one message keyed by key. Messages with the same key land
// on the same partition.
func (p *Producer) Publish(ctx context.Context, key string, value []byte, headers map[string]string) error {
	msg := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return p.WriteMessages(ctx, msg)
}

// WriteMessages sends msgs, retrying transient errors with backoff.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    p.cfg.Retries,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2,
		Jitter:         0.1,
		RetryIf:        IsRetryableError,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			p.log.Warn("kafka write failed, retrying", logger.Fields(
				logger.FieldAttempt, attempt, logger.FieldError, err.Error(), "backoff", backoff.String(),
			))
		},
	}
	err := resilience.RetryFunc(ctx, retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		p.failed.Add(int64(len(msgs)))
		msg := err.Error()
		p.lastErr.Store(&msg)
		return fmt.Errorf("kafka write to %s: %w", p.cfg.Topic, err)
	}
	p.published.Add(int64(len(msgs)))
	p.lastErr.Store(nil)
	return nil
}

// Stats summarizes what the producer has sent.
type Stats struct {
	Topic     string `json:"topic"`
	Published int64  `json:"published"`
	Failed    int64  `json:"failed"`
	Writes    int64  `json:"writes"`
	Retries   int64  `json:"retries"`
	Bytes     int64  `json:"bytes"`
	// AvgWriteMs is the writer's mean round trip since the last Stats call.
	AvgWriteMs float64 `json:"avg_write_ms"`
}

// Stats returns producer and writer statistics. The writer counters reset
// on every call.
func (p *Producer) Stats() Stats {
	ws := p.writer.Stats()
	return Stats{
		Topic:      p.cfg.Topic,
		Published:  p.published.Load(),
		Failed:     p.failed.Load(),
		Writes:     ws.Writes,
		Retries:    ws.Retries,
		Bytes:      ws.Bytes,
		AvgWriteMs: float64(ws.WriteTime.Avg) / float64(time.Millisecond),
	}
}

// Health is unavailable after Close and degraded while the most recent
// publish failed.
func (p *Producer) Health(_ context.Context) provider.HealthStatus {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	st := provider.HealthStatus{
		Status: provider.StatusHealthy,
		Details: map[string]any{
			"topic":     p.cfg.Topic,
			"published": p.published.Load(),
			"failed":    p.failed.Load(),
		},
	}
	lastErr := p.lastErr.Load()
	switch {
	case closed:
		st.Status = provider.StatusUnavailable
		st.Message = "producer closed"
	case lastErr != nil:
		st.Status = provider.StatusDegraded
		st.Message = *lastErr
	}
	return st
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
