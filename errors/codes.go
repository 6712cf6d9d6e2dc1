package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates an operation exceeded its time bound.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the caller is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeCanceled indicates the caller canceled the request.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Request errors
const (
	// ErrCodeInvalidInput indicates the request is malformed.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Audio errors
const (
	// ErrCodeUnsupportedFormat indicates the audio content matches no supported format,
	// or does not match the declared format.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeFormatConversion indicates the external codec failed to convert the audio.
	ErrCodeFormatConversion ErrorCode = "FORMAT_CONVERSION"
)

// Model errors
const (
	// ErrCodeModelLoad indicates a model could not be constructed or is not healthy.
	ErrCodeModelLoad ErrorCode = "MODEL_LOAD"
	// ErrCodeModelProcessing indicates a healthy model failed to transcribe.
	ErrCodeModelProcessing ErrorCode = "MODEL_PROCESSING"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
	ErrCodeModelLoad:          true,
	ErrCodeModelProcessing:    true,
}

// IsRetryableCode returns true if a client may reasonably retry a request
// that failed with this code.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var fallbackCodes = map[ErrorCode]bool{
	ErrCodeModelLoad:       true,
	ErrCodeModelProcessing: true,
	ErrCodeTimeout:         true,
}

// IsFallbackEligibleCode returns true for model-level failures that may be
// answered by substituting a fallback model. Validation, format and
// conversion failures never qualify: a different model cannot fix them.
func IsFallbackEligibleCode(code ErrorCode) bool {
	return fallbackCodes[code]
}
