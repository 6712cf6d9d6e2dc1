package transcription

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, "json": OutputJSON, " srt": OutputSRT} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("vtt"); err == nil {
		t.Error("expected error for vtt")
	}
}

func TestRender(t *testing.T) {
	res := &TranscriptionResult{
		Text:           "hello world",
		Confidence:     0.9,
		ProcessingTime: 1500 * time.Millisecond,
		ModelUsed:      "mock:a",
		Segments: []Segment{
			{Start: 0, End: 1.25, Text: " hello"},
			{Start: 1.25, End: 3661.5, Text: "world "},
		},
	}

	text, err := res.Render(OutputText)
	if err != nil || string(text) != "hello world\n" {
		t.Errorf("text = %q, %v", text, err)
	}

	raw, err := res.Render(OutputJSON)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["processing_time"] != 1.5 || decoded["model_used"] != "mock:a" || decoded["text"] != "hello world" {
		t.Errorf("json = %s", raw)
	}

	srt, err := res.Render(OutputSRT)
	if err != nil {
		t.Fatal(err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,250\nhello\n\n2\n00:00:01,250 --> 01:01:01,500\nworld\n\n"
	if string(srt) != want {
		t.Errorf("srt = %q, want %q", srt, want)
	}

	if _, err := res.Render("vtt"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRender_SRTWithoutSegments(t *testing.T) {
	res := &TranscriptionResult{Text: "only text", Duration: 2 * time.Second}
	srt, _ := res.Render(OutputSRT)
	if !strings.HasPrefix(string(srt), "1\n00:00:00,000 --> 00:00:02,000\nonly text") {
		t.Errorf("srt = %q", srt)
	}

	empty := &TranscriptionResult{}
	if srt, _ := empty.Render(OutputSRT); len(srt) != 0 {
		t.Errorf("empty transcript should render no cues, got %q", srt)
	}
	if text, _ := empty.Render(OutputText); string(text) != "\n" {
		t.Errorf("empty text = %q", text)
	}
}

func TestResultValidate(t *testing.T) {
	if err := (&TranscriptionResult{Confidence: 1.2}).Validate(); err == nil {
		t.Error("confidence above 1 should fail")
	}
	if err := (&TranscriptionResult{ProcessingTime: -time.Second}).Validate(); err == nil {
		t.Error("negative processing time should fail")
	}
	if err := (&TranscriptionResult{Confidence: 0}).Validate(); err != nil {
		t.Errorf("zero confidence, empty text is valid: %v", err)
	}
}
