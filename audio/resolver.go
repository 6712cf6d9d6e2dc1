package audio

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/process"
	"github.com/kbukum/voxkit/provider"
)

// Handle refers to audio on disk. Format is the detected format when known.
type Handle struct {
	Path   string
	Format Format
}

// Normalized is a model-ready audio handle. When the resolver created a
// temporary file for it, Release removes that file; Release is safe to call
// more than once and on handles that own nothing.
type Normalized struct {
	Path string
	// Format is the format of the file at Path.
	Format Format
	// Source is the detected format of the original input.
	Source    Format
	Converted bool

	once    sync.Once
	cleanup func()
}

// Handle returns the normalized audio as a plain Handle.
func (n *Normalized) Handle() Handle {
	return Handle{Path: n.Path, Format: n.Format}
}

// Release removes any temporary file backing n.
func (n *Normalized) Release() {
	if n == nil {
		return
	}
	n.once.Do(func() {
		if n.cleanup != nil {
			n.cleanup()
		}
	})
}

// Resolver detects, validates and converts audio formats.
type Resolver struct {
	config    Config
	converter Converter
	probe     *process.Runner
	metrics   *observability.Metrics
	log       *logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConverter replaces the ffmpeg converter.
func WithConverter(c Converter) Option {
	return func(r *Resolver) { r.converter = c }
}

// WithMetrics records conversions on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the resolver's logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver creates a Resolver. cfg defaults are applied here.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	cfg.ApplyDefaults()
	r := &Resolver{
		config: cfg,
		probe: process.NewRunner(
			process.RunnerConfig{Binary: cfg.FFprobePath, Timeout: cfg.ConversionTimeout},
			provider.ResilienceConfig{},
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.converter == nil {
		r.converter = NewFFmpegConverter(cfg)
	}
	if r.log == nil {
		r.log = logger.WithComponent("audio")
	}
	return r
}

// Converter returns the converter in use.
func (r *Resolver) Converter() Converter {
	return r.converter
}

// DetectFormat reads the header of the file at path. A file that matches
// no signature returns ok=false with a nil error.
func (r *Resolver) DetectFormat(path string) (Format, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, false, err
	}
	defer f.Close()
	return DetectReader(f)
}

// ValidateFormat reports whether the content at path is a supported format
// and, when expected is set, that it is expected. File names are ignored.
func (r *Resolver) ValidateFormat(path string, expected Format) bool {
	detected, ok, err := r.DetectFormat(path)
	if err != nil || !ok || !detected.IsSupported() {
		return false
	}
	return expected == FormatUnknown || detected == expected
}

// ConvertIfNeeded returns audio in target format. When h is already in
// target the original path is returned and no codec runs. Otherwise the
// converted file lives in a temporary file owned by the returned handle;
// on failure that file is already gone.
func (r *Resolver) ConvertIfNeeded(ctx context.Context, h Handle, target Format) (*Normalized, error) {
	if !target.IsSupported() {
		return nil, errors.InvalidInput("target_format", fmt.Sprintf("unsupported format %q", target))
	}
	src := h.Format
	if src == FormatUnknown {
		detected, ok, err := r.DetectFormat(h.Path)
		if err != nil {
			return nil, errors.NotFound("audio file", h.Path).WithCause(err)
		}
		if !ok {
			return nil, errors.UnsupportedFormat(h.Path, "", "")
		}
		src = detected
	}
	if src == target {
		return &Normalized{Path: h.Path, Format: src, Source: src}, nil
	}

	dst, err := r.tempFile(target)
	if err != nil {
		return nil, errors.FormatConversion(h.Path, string(src), string(target), err)
	}

	log := r.log.WithContext(ctx)
	log.Debug("converting audio", logger.Fields("from", src, "to", target, "path", h.Path))

	convErr := r.convert(ctx, h.Path, dst, target)
	r.recordConversion(ctx, src, target, convErr == nil)
	if convErr != nil {
		removeQuietly(dst)
		log.Warn("audio conversion failed", logger.Fields("from", src, "to", target, logger.FieldError, convErr.Error()))
		if ctx.Err() != nil {
			return nil, errors.Canceled("audio conversion").WithCause(convErr)
		}
		return nil, errors.FormatConversion(h.Path, string(src), string(target), convErr)
	}

	return &Normalized{
		Path:      dst,
		Format:    target,
		Source:    src,
		Converted: true,
		cleanup:   func() { removeQuietly(dst) },
	}, nil
}

func (r *Resolver) convert(ctx context.Context, src, dst string, target Format) error {
	if r.config.ConversionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ConversionTimeout)
		defer cancel()
	}
	if err := r.converter.Convert(ctx, src, dst, target); err != nil {
		return err
	}
	got, ok, err := r.DetectFormat(dst)
	if err != nil {
		return fmt.Errorf("inspect converted file: %w", err)
	}
	if !ok || got != target {
		return fmt.Errorf("converter produced %s, want %s", got, target)
	}
	return nil
}

// Materialize writes byte input to a temporary file so later stages can
// work on a path. The file takes the detected format's extension, falling
// back to hint when the content is not recognised.
func (r *Resolver) Materialize(data []byte, hint Format) (*Normalized, error) {
	if len(data) == 0 {
		return nil, errors.InvalidInput("source", "audio data is empty")
	}
	detected, _ := DetectBytes(data)
	ext := detected
	if ext == FormatUnknown {
		ext = hint
	}

	f, err := os.CreateTemp(r.config.TempDir, "voxkit-input-*"+ext.Extension())
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("create temp file: %w", err))
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		removeQuietly(path)
		return nil, errors.Internal(fmt.Errorf("write temp file: %w", err))
	}
	if err := f.Close(); err != nil {
		removeQuietly(path)
		return nil, errors.Internal(fmt.Errorf("close temp file: %w", err))
	}

	return &Normalized{
		Path:    path,
		Format:  detected,
		Source:  detected,
		cleanup: func() { removeQuietly(path) },
	}, nil
}

// Health reports the availability of the codec binaries.
func (r *Resolver) Health(ctx context.Context) provider.HealthStatus {
	status := provider.HealthStatus{Status: provider.StatusHealthy, Details: map[string]any{}}
	if hc, ok := r.converter.(provider.HealthChecker); ok {
		h := hc.Health(ctx)
		status.Details["converter"] = h
		if h.Status != provider.StatusHealthy {
			status.Status = provider.StatusDegraded
			status.Message = "audio conversion unavailable"
		}
	}
	probe := r.probe.Health(ctx)
	status.Details["ffprobe"] = probe
	if probe.Status != provider.StatusHealthy && status.Status == provider.StatusHealthy {
		status.Status = provider.StatusDegraded
		status.Message = "metadata probing unavailable"
	}
	return status
}

func (r *Resolver) tempFile(target Format) (string, error) {
	f, err := os.CreateTemp(r.config.TempDir, "voxkit-conv-*"+target.Extension())
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		removeQuietly(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

func (r *Resolver) recordConversion(ctx context.Context, from, to Format, ok bool) {
	if r.metrics != nil {
		r.metrics.RecordConversion(ctx, string(from), string(to), ok)
	}
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WithComponent("audio").Warn("failed to remove temp file", logger.Fields("path", path, logger.FieldError, err.Error()))
	}
}
