package transcription

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Render formats the result for output. Text output is the transcript
// followed by a newline; SRT uses the segments, or a single cue spanning
// the audio when the backend returned none.
func (r *TranscriptionResult) Render(format OutputFormat) ([]byte, error) {
	switch format {
	case OutputText, "":
		return []byte(r.Text + "\n"), nil
	case OutputJSON:
		return json.MarshalIndent(r, "", "  ")
	case OutputSRT:
		return []byte(r.srt()), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func (r *TranscriptionResult) srt() string {
	segments := r.Segments
	if len(segments) == 0 {
		if r.Text == "" {
			return ""
		}
		segments = []Segment{{Start: 0, End: r.Duration.Seconds(), Text: r.Text}}
	}

	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(s.Start), srtTimestamp(s.End), strings.TrimSpace(s.Text))
	}
	return b.String()
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	d := time.Duration(math.Round(seconds*1000)) * time.Millisecond
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, d/time.Millisecond)
}
