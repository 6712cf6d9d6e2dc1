package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OperationContext tracks one transcription request for tracing and metrics.
// A nil Metrics skips metric recording.
type OperationContext struct {
	ServiceName   string
	OperationName string
	RequestID     string
	Model         string
	StartTime     time.Time
	Metrics       *Metrics
}

// NewOperationContext creates an OperationContext starting now.
func NewOperationContext(serviceName, operationName, requestID string, metrics *Metrics) *OperationContext {
	return &OperationContext{
		ServiceName:   serviceName,
		OperationName: operationName,
		RequestID:     requestID,
		StartTime:     time.Now(),
		Metrics:       metrics,
	}
}

type operationContextKey struct{}

// WithOperationContext stores oc in ctx.
func WithOperationContext(ctx context.Context, oc *OperationContext) context.Context {
	return context.WithValue(ctx, operationContextKey{}, oc)
}

// OperationContextFromContext returns the OperationContext in ctx, or nil.
func OperationContextFromContext(ctx context.Context) *OperationContext {
	oc, _ := ctx.Value(operationContextKey{}).(*OperationContext)
	return oc
}

// StartSpanForOperation starts the request span and counts the request as active.
func (oc *OperationContext) StartSpanForOperation(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName, trace.WithAttributes(
		attribute.String(AttrServiceName, oc.ServiceName),
		attribute.String(AttrOperationName, oc.OperationName),
		attribute.String(AttrRequestID, oc.RequestID),
	))
	if oc.Metrics != nil {
		oc.Metrics.RecordRequestStart(ctx)
	}
	return WithOperationContext(ctx, oc), span
}

// EndOperation closes the span with the terminal state and records the
// request metrics.
func (oc *OperationContext) EndOperation(ctx context.Context, span trace.Span, state string, err error) {
	d := oc.Duration()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String(AttrState, state),
		attribute.String(AttrModel, oc.Model),
		attribute.Int64(AttrDurationMs, d.Milliseconds()),
	)
	span.End()

	if oc.Metrics != nil {
		oc.Metrics.RecordRequestEnd(ctx, oc.Model, state, d)
	}
}

// Duration returns the time elapsed since the operation started.
func (oc *OperationContext) Duration() time.Duration {
	return time.Since(oc.StartTime)
}
