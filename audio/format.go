package audio

import (
	"fmt"
	"slices"
	"strings"
)

// Format is an audio container format.
type Format string

// Supported formats.
const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatMP4     Format = "mp4"
	FormatM4A     Format = "m4a"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
)

// SupportedFormats lists every format the resolver can detect.
var SupportedFormats = []Format{FormatWAV, FormatMP3, FormatMP4, FormatM4A, FormatFLAC, FormatOGG}

// PriorityOrder ranks conversion targets, most preferred first.
var PriorityOrder = []Format{FormatWAV, FormatFLAC, FormatMP3, FormatOGG, FormatM4A, FormatMP4}

var mimeTypes = map[Format]string{
	FormatWAV:  "audio/wav",
	FormatMP3:  "audio/mpeg",
	FormatMP4:  "audio/mp4",
	FormatM4A:  "audio/x-m4a",
	FormatFLAC: "audio/flac",
	FormatOGG:  "audio/ogg",
}

// ParseFormat parses a format name case-insensitively. A leading dot is
// accepted so file extensions parse too.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if !f.IsSupported() {
		return FormatUnknown, fmt.Errorf("unsupported audio format %q", s)
	}
	return f, nil
}

// IsSupported reports whether f is one of SupportedFormats.
func (f Format) IsSupported() bool {
	return slices.Contains(SupportedFormats, f)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + string(f)
}

// MIMEType returns the media type for f.
func (f Format) MIMEType() string {
	if m, ok := mimeTypes[f]; ok {
		return m
	}
	return "application/octet-stream"
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// ChooseTarget picks the format to convert to for a model accepting
// modelFormats: the declared target when the model accepts it, otherwise
// the first accepted format in PriorityOrder. It returns false when the
// model accepts none of the supported formats.
func ChooseTarget(declared Format, modelFormats []Format) (Format, bool) {
	if declared != FormatUnknown && slices.Contains(modelFormats, declared) {
		return declared, true
	}
	for _, f := range PriorityOrder {
		if slices.Contains(modelFormats, f) {
			return f, true
		}
	}
	return FormatUnknown, false
}
