package transcription

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/voxkit/audio"
)

// OutputFormat selects how a result is rendered for the caller.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputSRT  OutputFormat = "srt"
)

// OutputFormats lists the accepted output formats.
var OutputFormats = []OutputFormat{OutputText, OutputJSON, OutputSRT}

// ParseOutputFormat parses s case-insensitively. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputJSON, OutputSRT:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// Source is the audio of a request: a path or in-memory bytes.
type Source struct {
	Path string
	Data []byte
}

// IsEmpty reports whether the source carries no audio.
func (s Source) IsEmpty() bool {
	return s.Path == "" && len(s.Data) == 0
}

// String names the source for logs and error details.
func (s Source) String() string {
	if s.Path != "" {
		return s.Path
	}
	return fmt.Sprintf("<%d bytes>", len(s.Data))
}

// AudioRequest asks for one transcription. Metadata is returned unmodified
// in TranscriptionResult.RequestMetadata.
type AudioRequest struct {
	// ID correlates logs, spans and events. Generated when empty.
	ID     string
	Source Source
	// Format is the declared format. Empty means detect from content.
	Format       audio.Format
	OutputFormat OutputFormat
	Parameters   map[string]any
	Metadata     map[string]any
}

// Segment is a time-aligned part of a transcript.
type Segment struct {
	// Start and End are offsets in seconds.
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Speaker    string  `json:"speaker,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// TranscriptionResult is the outcome of a successful transcription. An
// empty Text means no speech was detected.
type TranscriptionResult struct {
	Text string `json:"text"`
	// Confidence is in [0, 1].
	Confidence     float64       `json:"confidence"`
	ProcessingTime time.Duration `json:"-"`
	// ModelUsed identifies the instance that produced the result.
	ModelUsed string    `json:"model_used"`
	Language  string    `json:"language,omitempty"`
	Segments  []Segment `json:"segments,omitempty"`
	// Duration is the audio length when the backend reports it.
	Duration time.Duration `json:"-"`
	// Metadata holds backend and pipeline annotations.
	Metadata map[string]any `json:"metadata,omitempty"`
	// RequestMetadata is the caller's metadata, passed through unmodified.
	RequestMetadata map[string]any `json:"request_metadata,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Validate checks the invariants every returned result must hold.
func (r *TranscriptionResult) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", r.Confidence)
	}
	if r.ProcessingTime < 0 {
		return fmt.Errorf("negative processing time %s", r.ProcessingTime)
	}
	return nil
}

// Annotate sets a metadata key, creating the map when needed.
func (r *TranscriptionResult) Annotate(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// MarshalJSON renders durations in seconds.
func (r TranscriptionResult) MarshalJSON() ([]byte, error) {
	type plain TranscriptionResult
	return json.Marshal(struct {
		plain
		ProcessingTime float64 `json:"processing_time"`
		Duration       float64 `json:"duration,omitempty"`
	}{plain: plain(r), ProcessingTime: r.ProcessingTime.Seconds(), Duration: r.Duration.Seconds()})
}
