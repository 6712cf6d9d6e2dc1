// Package orchestrator runs transcription requests end to end.
//
// Each request moves through
//
//	validating -> format_resolving -> model_resolving -> transcribing -> succeeded | failed
//
// with at most one fallback_retrying detour from transcribing back to
// model_resolving. Every request ends with exactly one telemetry event and
// either a result or one classified *errors.AppError.
package orchestrator
