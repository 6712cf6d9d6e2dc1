package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/transcription"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxkit.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeWAV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           make([]int, 1600),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

const testConfig = `
name: voxkit-test
environment: production
audio:
  temp_dir: %s
orchestrator:
  transcribe_timeout: 30s
  batch_concurrency: 2
  primary:
    kind: mock
    locator: cli
    parameters:
      text: hello from voxkit
server:
  port: 9090
`

func TestLoadConfig_FileEnvAndDefaults(t *testing.T) {
	path := writeConfig(t, strings.Replace(testConfig, "%s", t.TempDir(), 1))
	t.Setenv("VOXKIT_SERVER_PORT", "9191")

	cfg, err := loadConfig(path, "")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Name != "voxkit-test" {
		t.Errorf("expected name from file, got %q", cfg.Name)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("expected env to override port, got %d", cfg.Server.Port)
	}
	if cfg.Orchestrator.TranscribeTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.Orchestrator.TranscribeTimeout)
	}
	if !cfg.Orchestrator.FallbackOnTimeout {
		t.Error("expected fallback_on_timeout to default to true")
	}
	if cfg.Orchestrator.Primary.Kind != transcription.KindMock || cfg.Orchestrator.Primary.Parameters["text"] != "hello from voxkit" {
		t.Errorf("unexpected primary model %+v", cfg.Orchestrator.Primary)
	}
	if cfg.Orchestrator.Fallback != nil {
		t.Errorf("expected no fallback, got %+v", cfg.Orchestrator.Fallback)
	}
	if cfg.Logging.Output != "stderr" || cfg.Logging.Level != "info" {
		t.Errorf("expected stderr info logging, got %s %s", cfg.Logging.Output, cfg.Logging.Level)
	}
	if cfg.Orchestrator.ServiceName != "voxkit-test" {
		t.Errorf("expected orchestrator service name from config name, got %q", cfg.Orchestrator.ServiceName)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yml"), ""); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults", func(*AppConfig) {}, ""},
		{"bad environment", func(c *AppConfig) { c.Environment = "qa" }, "environment"},
		{"bad port", func(c *AppConfig) { c.Server.Port = 70000 }, "config.server"},
		{"primary without locator", func(c *AppConfig) {
			c.Orchestrator.Primary = transcription.ModelConfig{Kind: transcription.KindWhisper}
		}, "config.orchestrator"},
		{"kafka compression", func(c *AppConfig) {
			c.Kafka.Enabled = true
			c.Kafka.ApplyDefaults()
			c.Kafka.Compression = "brotli"
		}, "config.kafka"},
		{"sample rate", func(c *AppConfig) { c.Observability.SampleRate = 2 }, "config.observability"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func newTestRuntime(t *testing.T) *runtime {
	t.Helper()
	cfg, err := loadConfig(writeConfig(t, strings.Replace(testConfig, "%s", t.TempDir(), 1)), "")
	if err != nil {
		t.Fatal(err)
	}
	rt, err := newRuntime(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newRuntime failed: %v", err)
	}
	return rt
}

func TestRunTranscribe(t *testing.T) {
	rt := newTestRuntime(t)
	dir := t.TempDir()
	a := writeWAV(t, dir, "a.wav")
	b := writeWAV(t, dir, "b.wav")

	var stdout, stderr bytes.Buffer
	opts := &transcribeOptions{output: "text"}
	err := rt.app.RunTask(context.Background(), func(ctx context.Context) error {
		return runTranscribe(ctx, rt.orch, opts, []string{a, b}, &stdout, &stderr)
	})
	if err != nil {
		t.Fatalf("transcribe failed: %v (stderr: %s)", err, stderr.String())
	}
	out := stdout.String()
	if strings.Count(out, "hello from voxkit") != 2 {
		t.Errorf("expected two transcripts, got %q", out)
	}
	if !strings.Contains(out, "==> "+a+" <==") {
		t.Errorf("expected per-file header, got %q", out)
	}
}

func TestRunTranscribe_JSONAndFailures(t *testing.T) {
	rt := newTestRuntime(t)
	dir := t.TempDir()
	good := writeWAV(t, dir, "good.wav")
	missing := filepath.Join(dir, "missing.wav")

	var stdout, stderr bytes.Buffer
	opts := &transcribeOptions{output: "json", language: "en"}
	err := runTranscribe(context.Background(), rt.orch, opts, []string{good, missing}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(stderr.String(), missing) {
		t.Errorf("expected failure reported for %s, got %q", missing, stderr.String())
	}

	var doc map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("expected one JSON document, got %q: %v", stdout.String(), err)
	}
	if doc["text"] != "hello from voxkit" {
		t.Errorf("unexpected text %v", doc["text"])
	}
}

func TestTranscribeOptions(t *testing.T) {
	rt := newTestRuntime(t)

	opts := &transcribeOptions{modelKind: transcription.KindWhisper, locator: "base.en", noFallback: true}
	models := opts.models(rt.orch.Config())
	if models.Primary.Kind != transcription.KindWhisper || models.Primary.Locator != "base.en" {
		t.Errorf("expected whisper override, got %+v", models.Primary)
	}
	if models.Fallback != nil {
		t.Error("expected fallback disabled")
	}

	if _, err := (&transcribeOptions{format: "aiff"}).requests([]string{"x"}); err == nil {
		t.Error("expected unsupported format error")
	}
	if _, err := (&transcribeOptions{output: "vtt"}).requests([]string{"x"}); err == nil {
		t.Error("expected unsupported output error")
	}
	if _, err := (&transcribeOptions{params: "[1]"}).requests([]string{"x"}); err == nil {
		t.Error("expected params error")
	}

	reqs, err := (&transcribeOptions{format: "WAV", params: `{"beam_size": 5}`, language: "de"}).requests([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	reqs[0].Parameters["mutated"] = true
	if _, ok := reqs[1].Parameters["mutated"]; ok {
		t.Error("requests must not share parameter maps")
	}
	if reqs[1].Parameters["language"] != "de" || reqs[1].Format != "wav" {
		t.Errorf("unexpected request %+v", reqs[1])
	}
}

func TestPrintFormats(t *testing.T) {
	var buf bytes.Buffer
	if err := printFormats(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"wav", "audio/wav", "flac", "Output formats: text json srt"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestApplyAddr(t *testing.T) {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	if err := applyAddr(&cfg.Server, "127.0.0.1:9000"); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("unexpected addr %s", cfg.Server.Addr())
	}
	if err := applyAddr(&cfg.Server, "nonsense"); err == nil {
		t.Error("expected error for address without port")
	}
}

type flacConverter struct{}

func (flacConverter) Convert(_ context.Context, _, dst string, _ audio.Format) error {
	return os.WriteFile(dst, []byte("fLaC\x00\x00\x00\x22\x10\x00\x10\x00"), 0o600)
}

func TestRunConvert(t *testing.T) {
	dir := t.TempDir()
	tmp := t.TempDir()
	resolver := audio.NewResolver(audio.Config{TempDir: tmp}, audio.WithConverter(flacConverter{}))
	src := writeWAV(t, dir, "memo.wav")

	var out bytes.Buffer
	if err := runConvert(context.Background(), resolver, src, audio.FormatFLAC, "", &out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "memo.flac"))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := audio.DetectBytes(data); got != audio.FormatFLAC {
		t.Errorf("output detected as %s", got)
	}
	if !strings.Contains(out.String(), "memo.wav (wav) -> ") {
		t.Errorf("unexpected output %q", out.String())
	}
	if entries, _ := os.ReadDir(tmp); len(entries) != 0 {
		t.Errorf("temporary files left behind: %d", len(entries))
	}

	out.Reset()
	if err := runConvert(context.Background(), resolver, src, audio.FormatWAV, "", &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "already wav") {
		t.Errorf("unexpected output %q", out.String())
	}

	if err := runConvert(context.Background(), resolver, src, audio.FormatFLAC, src, &out); err == nil {
		t.Error("expected refusal to overwrite the source")
	}
}
