package transcription

import (
	"context"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/provider"
)

// Model is the capability set of a speech-to-text backend. IsAvailable is
// the cheap readiness probe; it must never run a transcription.
//
// Transcribe must be safe for concurrent use. Backends whose engine is not
// reentrant serialize internally and report ConcurrencySerialized.
type Model interface {
	provider.Provider

	// Transcribe converts the audio at in.Path to text. Failures are
	// reported as errors, never as an empty result.
	Transcribe(ctx context.Context, in Input) (*TranscriptionResult, error)

	// SupportedFormats lists the formats Transcribe accepts.
	SupportedFormats() []audio.Format

	// Info returns static descriptive metadata.
	Info() ModelInfo
}

// Input is one transcription call.
type Input struct {
	Path string
	// FormatHint is the format of the file at Path, as detected by the
	// caller. Backends may trust it and skip their own detection.
	FormatHint audio.Format
	// Parameters are model-specific options passed through from the request.
	Parameters map[string]any
}

// Concurrency documents how a backend handles concurrent Transcribe calls.
type Concurrency string

const (
	ConcurrencySafe       Concurrency = "concurrent"
	ConcurrencySerialized Concurrency = "serialized"
)

// ModelInfo is static model metadata.
type ModelInfo struct {
	Name             string         `json:"name"`
	Version          string         `json:"version"`
	Kind             string         `json:"kind"`
	Locator          string         `json:"locator"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	SupportedFormats []audio.Format `json:"supported_formats"`
	Concurrency      Concurrency    `json:"concurrency"`
}
