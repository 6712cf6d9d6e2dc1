// Package mock provides a deterministic transcription backend for tests and
// local development. It can inject delays, load failures, health issues and
// transcription failures so fallback paths can be exercised.
package mock

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/transcription"
)

const (
	// Version is reported in ModelInfo.
	Version = "1.0.0"

	defaultConfidenceMin = 0.85
	defaultConfidenceMax = 0.95
)

// Built-in responses, selected by file name.
var defaultResponses = map[string]string{
	"default": "This is a mock transcription result.",
	"empty":   "",
	"long": "This is a very long mock transcription result that simulates " +
		"processing of lengthy audio files with multiple sentences and " +
		"complex content to test system behavior with larger outputs.",
}

// Params configures the mock backend. Every field is optional.
type Params struct {
	Locator string `mapstructure:"locator"`
	// Text, when set, is returned for every call, including the empty string.
	Text *string `mapstructure:"text"`
	// Responses maps file name substrings to transcripts.
	Responses map[string]string `mapstructure:"responses"`
	// Confidence fixes the score; otherwise it is drawn from
	// [ConfidenceMin, ConfidenceMax].
	Confidence    *float64      `mapstructure:"confidence"`
	ConfidenceMin float64       `mapstructure:"confidence_min"`
	ConfidenceMax float64       `mapstructure:"confidence_max"`
	Delay         time.Duration `mapstructure:"delay"`
	LoadDelay     time.Duration `mapstructure:"load_delay"`
	// ErrorRate is the probability in [0, 1] that a call fails.
	ErrorRate float64 `mapstructure:"error_rate"`
	// Seed makes confidence and error draws reproducible. Zero seeds from
	// the clock.
	Seed uint64 `mapstructure:"seed"`
	// FailTimes fails the first N calls.
	FailTimes            int      `mapstructure:"fail_times"`
	SimulateLoadFailure  bool     `mapstructure:"simulate_load_failure"`
	SimulateHealthIssues bool     `mapstructure:"simulate_health_issues"`
	SupportedFormats     []string `mapstructure:"supported_formats"`
	Language             string   `mapstructure:"language"`
}

// Model is the mock backend.
type Model struct {
	params    Params
	formats   []audio.Format
	responses map[string]string
	keys      []string

	calls   atomic.Int64
	healthy atomic.Bool

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a mock model.
func New(p Params) (*Model, error) {
	if p.ErrorRate < 0 || p.ErrorRate > 1 {
		return nil, fmt.Errorf("mock: error_rate %v outside [0, 1]", p.ErrorRate)
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1) {
		return nil, fmt.Errorf("mock: confidence %v outside [0, 1]", *p.Confidence)
	}
	if p.ConfidenceMin == 0 && p.ConfidenceMax == 0 {
		p.ConfidenceMin, p.ConfidenceMax = defaultConfidenceMin, defaultConfidenceMax
	}
	if p.ConfidenceMin < 0 || p.ConfidenceMax > 1 || p.ConfidenceMin > p.ConfidenceMax {
		return nil, fmt.Errorf("mock: invalid confidence range [%v, %v]", p.ConfidenceMin, p.ConfidenceMax)
	}
	if p.Locator == "" {
		p.Locator = "default"
	}

	formats := audio.SupportedFormats
	if len(p.SupportedFormats) > 0 {
		formats = make([]audio.Format, 0, len(p.SupportedFormats))
		for _, s := range p.SupportedFormats {
			f, err := audio.ParseFormat(s)
			if err != nil {
				return nil, fmt.Errorf("mock: %w", err)
			}
			formats = append(formats, f)
		}
	}

	responses := make(map[string]string, len(defaultResponses)+len(p.Responses))
	for k, v := range defaultResponses {
		responses[k] = v
	}
	keys := make([]string, 0, len(p.Responses))
	for k, v := range p.Responses {
		responses[strings.ToLower(k)] = v
		keys = append(keys, strings.ToLower(k))
	}
	// Longest key first so "meeting-long" beats "meeting".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	seed := p.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	m := &Model{
		params:    p,
		formats:   formats,
		responses: responses,
		keys:      keys,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	m.healthy.Store(!p.SimulateHealthIssues)
	return m, nil
}

// Factory builds mock models from a model config map. Construction waits
// LoadDelay, honouring ctx, and fails when SimulateLoadFailure is set.
func Factory() provider.Factory[transcription.Model] {
	return func(ctx context.Context, cfg map[string]any) (transcription.Model, error) {
		var p Params
		if err := transcription.DecodeParams(cfg, &p); err != nil {
			return nil, err
		}
		if err := sleep(ctx, p.LoadDelay); err != nil {
			return nil, err
		}
		if p.SimulateLoadFailure {
			return nil, errors.ModelLoad(transcription.KindMock, p.Locator, fmt.Errorf("mock: simulated load failure")).
				WithDetail("simulated", true)
		}
		m, err := New(p)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Register adds the mock factory to r.
func Register(r *transcription.Registry) {
	r.Register(transcription.KindMock, Factory())
}

// Name identifies this instance.
func (m *Model) Name() string {
	return transcription.KindMock + ":" + m.params.Locator
}

// IsAvailable reports the simulated health.
func (m *Model) IsAvailable(_ context.Context) bool {
	return m.healthy.Load()
}

// Health reports details alongside the simulated health.
func (m *Model) Health(_ context.Context) provider.HealthStatus {
	details := map[string]any{
		"calls":      m.Calls(),
		"error_rate": m.params.ErrorRate,
		"delay":      m.params.Delay.String(),
	}
	if !m.healthy.Load() {
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: "mock health issue simulation", Details: details}
	}
	return provider.HealthStatus{Status: provider.StatusHealthy, Message: "mock model is ready", Details: details}
}

// SetHealthy changes the simulated health at runtime.
func (m *Model) SetHealthy(ok bool) {
	m.healthy.Store(ok)
}

// Calls returns the number of Transcribe calls so far.
func (m *Model) Calls() int {
	return int(m.calls.Load())
}

// SupportedFormats returns the configured formats, all by default.
func (m *Model) SupportedFormats() []audio.Format {
	return append([]audio.Format(nil), m.formats...)
}

// Info describes the mock model.
func (m *Model) Info() transcription.ModelInfo {
	return transcription.ModelInfo{
		Name:    m.Name(),
		Version: Version,
		Kind:    transcription.KindMock,
		Locator: m.params.Locator,
		Parameters: map[string]any{
			"delay":      m.params.Delay.String(),
			"error_rate": m.params.ErrorRate,
			"fail_times": m.params.FailTimes,
		},
		SupportedFormats: m.SupportedFormats(),
		Concurrency:      transcription.ConcurrencySafe,
	}
}

// Transcribe returns a canned transcript chosen by file name.
func (m *Model) Transcribe(ctx context.Context, in transcription.Input) (*transcription.TranscriptionResult, error) {
	n := int(m.calls.Add(1))
	start := time.Now()

	if err := sleep(ctx, m.params.Delay); err != nil {
		return nil, err
	}
	if n <= m.params.FailTimes {
		return nil, fmt.Errorf("mock: simulated failure on call %d of %d", n, m.params.FailTimes)
	}

	m.mu.Lock()
	failed := m.params.ErrorRate > 0 && m.rng.Float64() < m.params.ErrorRate
	confidence := m.params.ConfidenceMin + m.rng.Float64()*(m.params.ConfidenceMax-m.params.ConfidenceMin)
	m.mu.Unlock()
	if failed {
		return nil, fmt.Errorf("mock: simulated transcription error")
	}
	if m.params.Confidence != nil {
		confidence = *m.params.Confidence
	}

	key, text := m.respond(in.Path)
	return &transcription.TranscriptionResult{
		Text:           text,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		ModelUsed:      m.Name(),
		Language:       m.params.Language,
		Metadata: map[string]any{
			"mock_model":   true,
			"response_key": key,
			"format_hint":  string(in.FormatHint),
		},
		Timestamp: time.Now(),
	}, nil
}

func (m *Model) respond(path string) (key, text string) {
	if m.params.Text != nil {
		return "text", *m.params.Text
	}
	name := strings.ToLower(filepath.Base(path))
	for _, k := range m.keys {
		if strings.Contains(name, k) {
			return k, m.responses[k]
		}
	}
	switch {
	case strings.Contains(name, "empty"), strings.Contains(name, "silent"):
		key = "empty"
	case strings.Contains(name, "long"), strings.Contains(name, "extended"):
		key = "long"
	default:
		key = "default"
	}
	return key, m.responses[key]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
