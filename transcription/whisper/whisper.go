// Package whisper implements transcription.Model on top of a
// faster-whisper HTTP sidecar.
//
// The sidecar exposes GET /health and POST /transcribe (multipart form with
// an "audio" file plus "model" and optional "language", "device",
// "compute_type" fields). Construction waits for the sidecar to come up,
// since loading weights can take a while after the container starts.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/resilience"
	"github.com/kbukum/voxkit/transcription"
)

const (
	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
	defaultStartupTimeout = 60 * time.Second
)

var defaultFormats = []audio.Format{audio.FormatWAV, audio.FormatFLAC, audio.FormatMP3, audio.FormatOGG}

// Config holds configuration for the Whisper backend. The model locator is
// either the sidecar URL or a model name; the other comes from URL or Model.
type Config struct {
	URL         string        `json:"url" yaml:"url" mapstructure:"url"`
	Model       string        `json:"model" yaml:"model" mapstructure:"model"`
	Language    string        `json:"language,omitempty" yaml:"language" mapstructure:"language"`
	Device      string        `json:"device,omitempty" yaml:"device" mapstructure:"device"`
	ComputeType string        `json:"compute_type,omitempty" yaml:"compute_type" mapstructure:"compute_type"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// StartupTimeout bounds the readiness wait during construction. Negative
	// skips the wait.
	StartupTimeout   time.Duration `json:"startup_timeout" yaml:"startup_timeout" mapstructure:"startup_timeout"`
	SupportedFormats []string      `json:"supported_formats,omitempty" yaml:"supported_formats" mapstructure:"supported_formats"`
	// MaxConcurrent caps in-flight requests to the sidecar. Zero is unbounded.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// RequestsPerSecond enables a client-side rate limit when positive.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	Locator string `json:"-" yaml:"-" mapstructure:"locator"`
}

// ApplyDefaults fills unset fields, resolving the locator first.
func (c *Config) ApplyDefaults() {
	if strings.HasPrefix(c.Locator, "http://") || strings.HasPrefix(c.Locator, "https://") {
		if c.URL == "" {
			c.URL = c.Locator
		}
	} else if c.Locator != "" && c.Model == "" {
		c.Model = c.Locator
	}
	if c.URL == "" {
		c.URL = defaultWhisperURL
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Model == "" {
		c.Model = defaultWhisperModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultWhisperTimeout
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = defaultStartupTimeout
	}
}

// Provider implements transcription.Model using a faster-whisper HTTP sidecar.
type Provider struct {
	cfg     Config
	formats []audio.Format
	client  *http.Client
	res     *provider.ResilienceState
	log     *logger.Logger
}

// NewProvider creates a Whisper provider without waiting for the sidecar.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	formats := defaultFormats
	if len(cfg.SupportedFormats) > 0 {
		formats = make([]audio.Format, 0, len(cfg.SupportedFormats))
		for _, s := range cfg.SupportedFormats {
			f, err := audio.ParseFormat(s)
			if err != nil {
				return nil, fmt.Errorf("whisper: %w", err)
			}
			formats = append(formats, f)
		}
	}

	name := "whisper:" + cfg.Model
	cb := resilience.DefaultCircuitBreakerConfig(name)
	cb.IsFailure = isSidecarFailure
	res := provider.ResilienceConfig{CircuitBreaker: &cb}
	if cfg.MaxConcurrent > 0 {
		res.Bulkhead = &resilience.BulkheadConfig{Name: name, MaxConcurrent: cfg.MaxConcurrent, MaxWait: cfg.Timeout}
	}
	if cfg.RequestsPerSecond > 0 {
		res.RateLimiter = &resilience.RateLimiterConfig{Name: name, Rate: cfg.RequestsPerSecond}
	}

	return &Provider{
		cfg:     cfg,
		formats: formats,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		res: provider.BuildResilience(res),
		log: logger.Get("whisper"),
	}, nil
}

// Factory returns a provider.Factory that creates Whisper providers from a
// model config map and waits until the sidecar reports ready.
func Factory() provider.Factory[transcription.Model] {
	return func(ctx context.Context, cfg map[string]any) (transcription.Model, error) {
		var wc Config
		if err := transcription.DecodeParams(cfg, &wc); err != nil {
			return nil, err
		}
		p, err := NewProvider(wc)
		if err != nil {
			return nil, err
		}
		if err := p.WaitReady(ctx); err != nil {
			return nil, errors.ModelLoad(transcription.KindWhisper, wc.Locator, err).WithDetail("url", p.cfg.URL)
		}
		return p, nil
	}
}

// Register adds the Whisper factory to r.
func Register(r *transcription.Registry) {
	r.Register(transcription.KindWhisper, Factory())
}

// WaitReady polls the health endpoint with exponential backoff until it
// answers or StartupTimeout passes.
func (p *Provider) WaitReady(ctx context.Context) error {
	if p.cfg.StartupTimeout < 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StartupTimeout)
	defer cancel()

	retry := resilience.RetryConfig{
		MaxAttempts:    math.MaxInt32,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			p.log.Debug("whisper sidecar not ready", logger.Fields(logger.FieldAttempt, attempt, logger.FieldError, err.Error(), "backoff", backoff.String()))
		},
	}
	err := resilience.RetryFunc(ctx, retry, func() error {
		return p.ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("whisper sidecar at %s not ready: %w", p.cfg.URL, err)
	}
	return nil
}

// Name identifies the model served by the sidecar.
func (p *Provider) Name() string { return "whisper:" + p.cfg.Model }

// IsAvailable checks if the Whisper sidecar is reachable. An open circuit
// leaves the instance available so its breaker state survives in the
// registry; Transcribe fails fast until the circuit half-opens.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.ping(ctx) == nil
}

// Health reports sidecar reachability and the circuit state.
func (p *Provider) Health(ctx context.Context) provider.HealthStatus {
	details := map[string]any{"url": p.cfg.URL, "circuit": p.res.CircuitState().String()}
	if err := p.ping(ctx); err != nil {
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: err.Error(), Details: details}
	}
	if p.res.CircuitState() != resilience.StateClosed {
		return provider.HealthStatus{Status: provider.StatusDegraded, Message: "circuit not closed", Details: details}
	}
	return provider.HealthStatus{Status: provider.StatusHealthy, Details: details}
}

func (p *Provider) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

// SupportedFormats returns the formats the sidecar is configured to accept.
func (p *Provider) SupportedFormats() []audio.Format {
	return append([]audio.Format(nil), p.formats...)
}

// Info describes the sidecar model.
func (p *Provider) Info() transcription.ModelInfo {
	params := map[string]any{"url": p.cfg.URL}
	if p.cfg.Language != "" {
		params["language"] = p.cfg.Language
	}
	if p.cfg.Device != "" {
		params["device"] = p.cfg.Device
	}
	if p.cfg.ComputeType != "" {
		params["compute_type"] = p.cfg.ComputeType
	}
	return transcription.ModelInfo{
		Name:             p.Name(),
		Version:          p.cfg.Model,
		Kind:             transcription.KindWhisper,
		Locator:          p.cfg.Locator,
		Parameters:       params,
		SupportedFormats: p.SupportedFormats(),
		Concurrency:      transcription.ConcurrencySafe,
	}
}

// Transcribe sends an audio file to the Whisper sidecar and returns the transcription.
// A "language" parameter overrides the configured language.
func (p *Provider) Transcribe(ctx context.Context, in transcription.Input) (*transcription.TranscriptionResult, error) {
	audioData, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	lang := p.cfg.Language
	if v, ok := in.Parameters["language"].(string); ok && v != "" {
		lang = v
	}
	filename := "audio" + in.FormatHint.Extension()
	if in.FormatHint == audio.FormatUnknown {
		filename = filepath.Base(in.Path)
	}

	start := time.Now()
	result, err := provider.ExecuteWithResilience(ctx, p.res, func() (*whisperResponse, error) {
		return p.post(ctx, filename, audioData, lang)
	})
	if err != nil {
		return nil, err
	}
	return p.toResult(result, time.Since(start)), nil
}

func (p *Provider) post(ctx context.Context, filename string, audioData []byte, lang string) (*whisperResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	_ = writer.WriteField("model", p.cfg.Model)
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if p.cfg.Device != "" {
		_ = writer.WriteField("device", p.cfg.Device)
	}
	if p.cfg.ComputeType != "" {
		_ = writer.WriteField("compute_type", p.cfg.ComputeType)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	return &result, nil
}

// StatusError is a non-200 answer from the sidecar.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("whisper error (status %d): %s", e.StatusCode, e.Body)
}

// isSidecarFailure counts server-side and transport errors against the
// circuit. Rejected requests and caller cancellations do not.
func isSidecarFailure(err error) bool {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return !stderrors.Is(err, context.Canceled)
}

// --- internal Whisper API response types ---

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

type whisperSegment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	AvgLogprob float64 `json:"avg_logprob"`
}

func (p *Provider) toResult(resp *whisperResponse, elapsed time.Duration) *transcription.TranscriptionResult {
	segments := make([]transcription.Segment, len(resp.Segments))
	var weighted, total float64
	for i, seg := range resp.Segments {
		conf := logprobToConfidence(seg.AvgLogprob)
		segments[i] = transcription.Segment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Confidence: conf,
		}
		span := seg.End - seg.Start
		if span <= 0 {
			span = 1
		}
		weighted += conf * span
		total += span
	}

	duration := resp.Duration
	if duration == 0 && len(resp.Segments) > 0 {
		duration = resp.Segments[len(resp.Segments)-1].End
	}
	confidence := 0.0
	if total > 0 {
		confidence = weighted / total
	}

	return &transcription.TranscriptionResult{
		Text:           strings.TrimSpace(resp.Text),
		Confidence:     confidence,
		ProcessingTime: elapsed,
		ModelUsed:      p.Name(),
		Language:       resp.Language,
		Segments:       segments,
		Duration:       time.Duration(duration * float64(time.Second)),
		Metadata:       map[string]any{"segments": len(segments)},
		Timestamp:      time.Now(),
	}
}

// logprobToConfidence maps an average token log-probability to [0, 1].
func logprobToConfidence(lp float64) float64 {
	c := math.Exp(lp)
	return math.Max(0, math.Min(1, c))
}
