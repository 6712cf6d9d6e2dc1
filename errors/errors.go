package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
	// Prior is the classified error of an earlier attempt for the same
	// request, set when a fallback attempt failed as well.
	Prior *AppError `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	if e.Prior != nil {
		msg = fmt.Sprintf("%s (after: %s)", msg, e.Prior.Code)
	}
	return msg
}

// Unwrap exposes both the cause and the prior attempt's error so that
// errors.Is and errors.As walk the whole causal chain.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Prior != nil {
		errs = append(errs, e.Prior)
	}
	return errs
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithPrior attaches the error of an earlier attempt and returns the receiver.
func (e *AppError) WithPrior(prior *AppError) *AppError {
	e.Prior = prior
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Chain returns the error followed by every prior attempt, newest first.
func (e *AppError) Chain() []*AppError {
	var chain []*AppError
	for cur := e; cur != nil; cur = cur.Prior {
		chain = append(chain, cur)
	}
	return chain
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Generic constructors ---

// ServiceUnavailable creates an AppError for a dependency that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates an AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The operation took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// RateLimited creates an AppError for too many requests.
func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please wait a moment and try again.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}

// Canceled creates an AppError for a request the caller abandoned.
func Canceled(operation string) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: "The request was canceled.",
		HTTPStatus: 499, Retryable: false,
		Details: map[string]any{"operation": operation},
	}
}

// NotFound creates an AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates an AppError for a malformed request.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates an AppError for struct validation failures.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates an AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Internal creates an AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// ExternalServiceError creates an AppError for a failing external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// --- Transcription constructors ---

// UnsupportedFormat reports audio whose content matches no supported format,
// or whose detected format contradicts the declared one. Empty declared or
// detected values are left out of the details.
func UnsupportedFormat(source, declared, detected string) *AppError {
	details := map[string]any{"source": source}
	msg := "Audio content does not match any supported format."
	if declared != "" {
		details["declared_format"] = declared
	}
	if detected != "" {
		details["detected_format"] = detected
	}
	if declared != "" && detected != "" && declared != detected {
		msg = fmt.Sprintf("Audio content is %s but was declared as %s.", detected, declared)
	}
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: msg,
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false, Details: details,
	}
}

// FormatConversion reports a codec failure while converting between formats.
func FormatConversion(source, from, to string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeFormatConversion, Message: fmt.Sprintf("Failed to convert audio from %s to %s.", from, to),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false, Cause: cause,
		Details: map[string]any{"source": source, "from_format": from, "to_format": to},
	}
}

// ModelLoad reports a model that could not be constructed or failed its health check.
func ModelLoad(kind, locator string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeModelLoad, Message: fmt.Sprintf("Failed to load %s model.", kind),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true, Cause: cause,
		Details: map[string]any{"model_kind": kind, "model_locator": locator},
	}
}

// ModelProcessing reports a transcription call that failed on a healthy model.
func ModelProcessing(model string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeModelProcessing, Message: fmt.Sprintf("Model %s failed to transcribe the audio.", model),
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
		Details: map[string]any{"model": model},
	}
}

// ModelTimeout reports a transcription call that exceeded its configured bound.
func ModelTimeout(model string, bound time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("Model %s did not finish within %s.", model, bound),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"model": model, "timeout": bound.String()},
	}
}
