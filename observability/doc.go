// Package observability wires OpenTelemetry tracing and metrics.
//
// Setup exports both over OTLP/HTTP when enabled and leaves the global
// no-op providers in place otherwise:
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "voxkit", version.Version)
//	defer shutdown(context.Background())
//
// Transcription requests are tracked with an OperationContext, which opens a
// span and records the request metrics when the request ends:
//
//	oc := observability.NewOperationContext("voxkit", "transcribe", requestID, metrics)
//	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanTranscribe)
//	defer oc.EndOperation(ctx, span, "succeeded", nil)
package observability
