// Package errors provides the error taxonomy shared by every voxkit package.
//
// All failures surface as *AppError carrying a machine-readable ErrorCode,
// a human-readable message, structured details and an optional cause. The
// transcription-specific kinds (unsupported format, conversion, model load,
// model processing, timeout) extend the generic service codes so that the
// orchestrator and the HTTP layer can treat every error uniformly.
//
// When a request falls back to a secondary model and that model fails as
// well, the returned error is the fallback's error and Prior holds the
// primary failure. Both remain reachable through errors.Is and errors.As.
package errors
