package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/telemetry"
	"github.com/kbukum/voxkit/transcription"
)

var (
	errNoResult = stderrors.New("backend returned no result")
	errNoTarget = stderrors.New("no format supported by both input and model")
)

// Models is the model pair used for one request.
type Models struct {
	Primary  transcription.ModelConfig
	Fallback *transcription.ModelConfig
}

// Orchestrator processes transcription requests. It holds no per-request
// state and is safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	policy   transcription.FallbackPolicy
	registry *transcription.Registry
	resolver *audio.Resolver
	sink     telemetry.Sink
	metrics  *observability.Metrics
	log      *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets the telemetry sink. Events are discarded by default.
func WithSink(s telemetry.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithMetrics records request metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an Orchestrator.
func New(cfg Config, registry *transcription.Registry, resolver *audio.Resolver, opts ...Option) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator config: %w", err)
	}
	o := &Orchestrator{
		cfg:      cfg,
		policy:   cfg.Policy(),
		registry: registry,
		resolver: resolver,
		sink:     telemetry.Discard,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithComponent("orchestrator")
	return o, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Registry returns the model registry.
func (o *Orchestrator) Registry() *transcription.Registry {
	return o.registry
}

// Resolver returns the audio format resolver.
func (o *Orchestrator) Resolver() *audio.Resolver {
	return o.resolver
}

// Process transcribes req with the configured models.
func (o *Orchestrator) Process(ctx context.Context, req transcription.AudioRequest) (*transcription.TranscriptionResult, error) {
	return o.ProcessWith(ctx, req, o.cfg.Models())
}

// ProcessWith transcribes req with the given models. On failure the error
// is an *errors.AppError; when a fallback also failed it carries the
// primary failure as Prior.
func (o *Orchestrator) ProcessWith(ctx context.Context, req transcription.AudioRequest, models Models) (*transcription.TranscriptionResult, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = logger.ContextWithRequestID(ctx, req.ID)
	log := o.log.WithContext(ctx)

	oc := observability.NewOperationContext(o.cfg.ServiceName, "transcribe", req.ID, o.metrics)
	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanTranscribe)

	r := &run{
		req:    req,
		models: models,
		log:    log,
	}
	r.machine = newMachine(func(from, to State) {
		log.Debug("state transition", logger.Fields("from", from, "to", to))
	})

	result, err := o.execute(ctx, r)

	final := StateSucceeded
	if err != nil {
		final = StateFailed
	}
	r.machine.to(final)
	oc.Model = r.modelUsed
	oc.EndOperation(ctx, span, string(final), err)
	o.emit(ctx, r, oc.Duration(), err)

	if err != nil {
		log.Warn("transcription failed", logger.Fields(
			logger.FieldErrorCode, errors.CodeOf(err),
			logger.FieldError, err.Error(),
			logger.FieldDuration, oc.Duration().Milliseconds(),
		))
		return nil, err
	}
	result.ProcessingTime = oc.Duration()
	log.Info("transcription succeeded", logger.Fields(
		logger.FieldModel, result.ModelUsed,
		logger.FieldDuration, result.ProcessingTime.Milliseconds(),
		"degraded", r.machine.fellBack,
	))
	return result, nil
}

// run is the state of one request.
type run struct {
	req     transcription.AudioRequest
	models  Models
	machine *machine
	log     *logger.Logger

	path        string
	source      *lease
	detected    audio.Format
	convertedTo audio.Format
	modelUsed   string
	primaryErr  *errors.AppError
}

func (o *Orchestrator) execute(ctx context.Context, r *run) (*transcription.TranscriptionResult, error) {
	if err := o.validate(r); err != nil {
		return nil, err
	}

	r.machine.to(StateFormatResolving)
	release, err := o.resolveFormat(ctx, r)
	if err != nil {
		return nil, err
	}
	r.source = newLease(release)
	defer r.source.done()

	r.machine.to(StateModelResolving)
	h, err := o.registry.ResolveWithFallback(ctx, r.models.Primary, r.models.Fallback)
	if err != nil {
		return nil, o.classify(ctx, err, r.models.Primary.Identity())
	}
	if h.Degraded {
		r.machine.degrade()
		r.primaryErr = h.PrimaryError
		o.recordFallback(ctx, r, h, h.PrimaryError)
	}

	r.machine.to(StateTranscribing)
	result, aerr := o.attempt(ctx, r, h)
	if aerr == nil {
		return result, nil
	}
	if r.primaryErr != nil {
		return nil, aerr.WithPrior(r.primaryErr)
	}
	if !o.policy.ShouldFallback(aerr, r.models.Primary, r.models.Fallback, r.machine.fellBack) {
		return nil, aerr
	}

	r.machine.to(StateFallbackRetrying)
	r.primaryErr = aerr
	r.log.Warn("primary model failed, retrying with fallback", logger.Fields(
		logger.FieldModel, h.ModelUsed(),
		"fallback", r.models.Fallback.Identity(),
		logger.FieldErrorCode, aerr.Code,
	))

	r.machine.to(StateModelResolving)
	fh, err := o.registry.Resolve(ctx, *r.models.Fallback)
	if err != nil {
		return nil, o.classify(ctx, err, r.models.Fallback.Identity()).WithPrior(r.primaryErr)
	}
	o.recordFallback(ctx, r, fh, r.primaryErr)

	r.machine.to(StateTranscribing)
	result, aerr = o.attempt(ctx, r, fh)
	if aerr != nil {
		return nil, aerr.WithPrior(r.primaryErr)
	}
	return result, nil
}

func (o *Orchestrator) validate(r *run) error {
	if r.req.Source.IsEmpty() {
		return errors.InvalidInput("source", "audio source is empty")
	}
	if r.req.Format != audio.FormatUnknown && !r.req.Format.IsSupported() {
		return errors.InvalidInput("format", fmt.Sprintf("unsupported format %q", r.req.Format)).
			WithDetail("supported", audio.SupportedFormats)
	}
	if err := r.models.Primary.Validate(); err != nil {
		return err
	}
	if r.models.Fallback != nil && !r.models.Fallback.IsZero() {
		if err := r.models.Fallback.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// resolveFormat puts the source on disk and detects its format. The
// returned func releases any temporary file.
func (o *Orchestrator) resolveFormat(ctx context.Context, r *run) (func(), error) {
	release := func() {}
	source := r.req.Source.String()

	if len(r.req.Source.Data) > 0 && r.req.Source.Path == "" {
		n, err := o.resolver.Materialize(r.req.Source.Data, r.req.Format)
		if err != nil {
			return release, err
		}
		release = n.Release
		r.path = n.Path
	} else {
		r.path = r.req.Source.Path
	}

	if err := ctx.Err(); err != nil {
		release()
		return func() {}, errors.Canceled("format resolution").WithCause(err)
	}

	detected, ok, err := o.resolver.DetectFormat(r.path)
	if err != nil {
		release()
		return func() {}, errors.InvalidInput("source", "audio file is not readable").
			WithDetail("source", source).WithCause(err)
	}
	if !ok {
		release()
		return func() {}, errors.UnsupportedFormat(source, string(r.req.Format), "")
	}
	if r.req.Format != audio.FormatUnknown && detected != r.req.Format {
		release()
		return func() {}, errors.UnsupportedFormat(source, string(r.req.Format), string(detected))
	}
	r.detected = detected
	return release, nil
}

// attempt runs one model: conversion when the model needs it, then the
// bounded transcribe call.
func (o *Orchestrator) attempt(ctx context.Context, r *run, h *transcription.Handle) (*transcription.TranscriptionResult, *errors.AppError) {
	model := h.ModelUsed()
	r.modelUsed = model

	input := audio.Handle{Path: r.path, Format: r.detected}
	formats := h.Model.SupportedFormats()
	target := r.detected
	if !slices.Contains(formats, r.detected) {
		t, ok := audio.ChooseTarget(r.req.Format, formats)
		if !ok {
			return nil, errors.FormatConversion(r.req.Source.String(), string(r.detected), "", errNoTarget).
				WithDetail("model_formats", formats)
		}
		target = t
	}

	cctx, span := observability.StartSpan(ctx, observability.SpanConvert)
	normalized, err := o.resolver.ConvertIfNeeded(cctx, input, target)
	if err != nil {
		observability.SetSpanError(cctx, err)
		span.End()
		return nil, o.classify(ctx, err, model)
	}
	span.End()
	srcHold := r.source.hold()
	r.convertedTo = audio.FormatUnknown
	if normalized.Converted {
		r.convertedTo = normalized.Format
	}

	result, err := o.transcribe(ctx, h.Model, transcription.Input{
		Path:       normalized.Path,
		FormatHint: normalized.Format,
		Parameters: r.req.Parameters,
	}, func() {
		normalized.Release()
		srcHold()
	})
	if err != nil {
		return nil, o.classify(ctx, err, model)
	}
	if result == nil {
		return nil, errors.ModelProcessing(model, errNoResult)
	}
	if verr := result.Validate(); verr != nil {
		return nil, errors.ModelProcessing(model, verr)
	}

	o.annotate(r, result, h)
	return result, nil
}

type outcome struct {
	result *transcription.TranscriptionResult
	err    error
}

// transcribe calls m under the configured timeout. The call is abandoned,
// not awaited, when the bound passes. release runs once m returns, so an
// abandoned call keeps its input file until the model is done with it.
func (o *Orchestrator) transcribe(ctx context.Context, m transcription.Model, in transcription.Input, release func()) (*transcription.TranscriptionResult, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanModelCall)
	defer span.End()

	if o.cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TranscribeTimeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := m.Transcribe(ctx, in)
		release()
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			observability.SetSpanError(ctx, out.err)
		}
		return out.result, out.err
	case <-ctx.Done():
		observability.SetSpanError(ctx, ctx.Err())
		return nil, ctx.Err()
	}
}

// classify maps err into the taxonomy. A done caller context, canceled or
// past its own deadline, always wins over whatever the callee reported.
// Only the configured transcribe bound yields TIMEOUT.
func (o *Orchestrator) classify(ctx context.Context, err error, model string) *errors.AppError {
	if ctx.Err() != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeCanceled {
			return appErr
		}
		return errors.Canceled("transcription").WithCause(err)
	}
	return transcription.Classify(err, model, o.cfg.TranscribeTimeout)
}

func (o *Orchestrator) annotate(r *run, result *transcription.TranscriptionResult, h *transcription.Handle) {
	result.ModelUsed = h.ModelUsed()
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	result.RequestMetadata = r.req.Metadata
	result.Annotate("request_id", r.req.ID)
	result.Annotate("source_format", string(r.detected))
	if r.convertedTo != audio.FormatUnknown {
		result.Annotate("converted_to", string(r.convertedTo))
	}
	if r.machine.fellBack {
		result.Annotate("degraded", true)
		result.Annotate("fallback_from", r.models.Primary.Identity())
		if r.primaryErr != nil {
			result.Annotate("fallback_reason", string(r.primaryErr.Code))
		}
	}
}

func (o *Orchestrator) recordFallback(ctx context.Context, r *run, to *transcription.Handle, cause *errors.AppError) {
	if o.metrics == nil || cause == nil {
		return
	}
	o.metrics.RecordFallback(ctx, r.models.Primary.Identity(), to.Config.Identity(), string(cause.Code))
}

// emit sends the terminal event. Sink failures are logged, never returned.
func (o *Orchestrator) emit(ctx context.Context, r *run, d time.Duration, err error) {
	e := telemetry.Event{
		RequestID:    r.req.ID,
		State:        string(r.machine.state),
		Duration:     d,
		Model:        r.modelUsed,
		Fallback:     r.machine.fellBack,
		Degraded:     r.machine.fellBack && err == nil,
		SourceFormat: string(r.detected),
		Timestamp:    time.Now().UTC(),
		Attributes: map[string]any{
			"states": r.machine.historyStrings(),
		},
	}
	if r.convertedTo != audio.FormatUnknown {
		e.ConvertedTo = string(r.convertedTo)
	}
	if err != nil {
		e.ErrorCode = string(errors.CodeOf(err))
		e.Message = err.Error()
		if appErr, ok := errors.AsAppError(err); ok && appErr.Prior != nil {
			e.Attributes["prior_error_code"] = string(appErr.Prior.Code)
		}
	}
	if serr := o.sink.Emit(ctx, e); serr != nil {
		r.log.Warn("telemetry emit failed", logger.Fields(logger.FieldError, serr.Error()))
	}
}
