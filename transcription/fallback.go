package transcription

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kbukum/voxkit/errors"
)

// FallbackPolicy decides when a failed primary model is replaced by the
// fallback model. Load and processing failures are always eligible;
// OnTimeout controls whether timeouts are too.
type FallbackPolicy struct {
	OnTimeout bool `yaml:"on_timeout" mapstructure:"on_timeout"`
}

// DefaultFallbackPolicy falls back on every model-level failure.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{OnTimeout: true}
}

// taxonomyCodes are kept as reported by a backend. Other AppErrors, such
// as an open circuit to a sidecar, are wrapped as MODEL_PROCESSING.
var taxonomyCodes = map[errors.ErrorCode]bool{
	errors.ErrCodeInvalidInput:      true,
	errors.ErrCodeUnsupportedFormat: true,
	errors.ErrCodeFormatConversion:  true,
	errors.ErrCodeModelLoad:         true,
	errors.ErrCodeModelProcessing:   true,
	errors.ErrCodeTimeout:           true,
	errors.ErrCodeCanceled:          true,
}

// Classify maps an error from a model call into the taxonomy. Deadlines
// become TIMEOUT with the given bound, caller cancellations become
// CANCELED, and anything else is MODEL_PROCESSING.
func Classify(err error, model string, timeout time.Duration) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok && taxonomyCodes[appErr.Code] {
		return appErr
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ModelTimeout(model, timeout).WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return errors.Canceled("transcription").WithCause(err)
	default:
		return errors.ModelProcessing(model, err)
	}
}

// ShouldFallback reports whether err on the primary model permits one
// attempt on fallback. It never permits a second fallback, a fallback to the
// same model, or a fallback the primary config disables.
func (p FallbackPolicy) ShouldFallback(err *errors.AppError, primary ModelConfig, fallback *ModelConfig, alreadyFellBack bool) bool {
	if err == nil || alreadyFellBack || fallback == nil || fallback.IsZero() {
		return false
	}
	if !primary.FallbackEnabled || fallback.Identity() == primary.Identity() {
		return false
	}
	if err.Code == errors.ErrCodeTimeout {
		return p.OnTimeout
	}
	return errors.IsFallbackEligibleCode(err.Code)
}
