package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/transcription"
)

func ptr[T any](v T) *T { return &v }

func TestTranscribe_ResponseSelection(t *testing.T) {
	m, err := New(Params{Seed: 7, Responses: map[string]string{"meeting": "minutes", "meeting-long": "long minutes"}})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path string
		want string
	}{
		{"/data/call.wav", defaultResponses["default"]},
		{"/data/silent-room.wav", ""},
		{"/data/empty.ogg", ""},
		{"/data/extended.mp3", defaultResponses["long"]},
		{"/data/MEETING-long.flac", "long minutes"},
		{"/data/meeting.wav", "minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := m.Transcribe(context.Background(), transcription.Input{Path: tt.path})
			if err != nil {
				t.Fatal(err)
			}
			if res.Text != tt.want {
				t.Errorf("Text = %q, want %q", res.Text, tt.want)
			}
			if res.Confidence < defaultConfidenceMin || res.Confidence > defaultConfidenceMax {
				t.Errorf("Confidence = %v outside default range", res.Confidence)
			}
			if res.ModelUsed != "mock:default" {
				t.Errorf("ModelUsed = %q", res.ModelUsed)
			}
		})
	}
}

func TestTranscribe_FixedTextAndConfidence(t *testing.T) {
	m, err := New(Params{Text: ptr(""), Confidence: ptr(1.0)})
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Transcribe(context.Background(), transcription.Input{Path: "speech.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "" || res.Confidence != 1.0 {
		t.Errorf("got %q / %v, want empty text with confidence 1", res.Text, res.Confidence)
	}
}

func TestTranscribe_FailTimes(t *testing.T) {
	m, err := New(Params{FailTimes: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		_, err := m.Transcribe(context.Background(), transcription.Input{Path: "a.wav"})
		if (err != nil) != (i <= 2) {
			t.Errorf("call %d: err = %v", i, err)
		}
	}
	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
}

func TestTranscribe_ErrorRate(t *testing.T) {
	m, err := New(Params{ErrorRate: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Transcribe(context.Background(), transcription.Input{Path: "a.wav"}); err == nil {
		t.Error("error_rate 1 should always fail")
	}
}

func TestTranscribe_DelayHonoursContext(t *testing.T) {
	m, err := New(Params{Delay: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = m.Transcribe(ctx, transcription.Input{Path: "a.wav"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Transcribe ignored the context deadline")
	}
}

func TestNew_Validation(t *testing.T) {
	bad := []Params{
		{ErrorRate: 1.5},
		{Confidence: ptr(-0.1)},
		{ConfidenceMin: 0.9, ConfidenceMax: 0.5},
		{SupportedFormats: []string{"aac"}},
	}
	for i, p := range bad {
		if _, err := New(p); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestFactory(t *testing.T) {
	f := Factory()
	m, err := f(context.Background(), map[string]any{
		transcription.ParamLocator: "fast",
		"supported_formats":        "wav,flac",
		"delay":                    "5ms",
		"simulate_health_issues":   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "mock:fast" {
		t.Errorf("Name() = %q", m.Name())
	}
	if got := m.SupportedFormats(); len(got) != 2 || got[0] != audio.FormatWAV || got[1] != audio.FormatFLAC {
		t.Errorf("SupportedFormats() = %v", got)
	}
	if m.IsAvailable(context.Background()) {
		t.Error("simulate_health_issues should make the model unavailable")
	}
	if info := m.Info(); info.Kind != transcription.KindMock || info.Concurrency != transcription.ConcurrencySafe {
		t.Errorf("Info() = %+v", info)
	}

	if _, err := f(context.Background(), map[string]any{"simulate_load_failure": true}); err == nil {
		t.Error("simulate_load_failure should fail construction")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f(ctx, map[string]any{"load_delay": "1s"}); !errors.Is(err, context.Canceled) {
		t.Errorf("load_delay should honour ctx, got %v", err)
	}
}
