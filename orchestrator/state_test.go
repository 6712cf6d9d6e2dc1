package orchestrator

import (
	"testing"
	"time"

	"github.com/kbukum/voxkit/transcription"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateValidating, StateFormatResolving, true},
		{StateValidating, StateTranscribing, false},
		{StateTranscribing, StateFallbackRetrying, true},
		{StateFallbackRetrying, StateModelResolving, true},
		{StateFallbackRetrying, StateTranscribing, false},
		{StateSucceeded, StateFailed, false},
		{StateFailed, StateValidating, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !StateSucceeded.Terminal() || StateTranscribing.Terminal() {
		t.Error("Terminal() mismatch")
	}
}

func TestMachine_SingleFallback(t *testing.T) {
	m := newMachine(nil)
	for _, s := range []State{StateFormatResolving, StateModelResolving, StateTranscribing, StateFallbackRetrying, StateModelResolving, StateTranscribing} {
		m.to(s)
	}
	defer func() {
		if recover() == nil {
			t.Error("second fallback should panic")
		}
	}()
	m.to(StateFallbackRetrying)
}

func TestMachine_IllegalTransitionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	newMachine(nil).to(StateSucceeded)
}

func TestConfig_Configured(t *testing.T) {
	backup := transcription.ModelConfig{Kind: transcription.KindMock, Locator: "backup"}
	cfg := DefaultConfig()
	cfg.Fallback = &backup
	cfg.Catalog = map[string]transcription.ModelConfig{
		"large": {Kind: transcription.KindWhisper, Locator: "large-v3", Parameters: map[string]any{"device": "cuda"}},
	}

	tests := []struct {
		kind, locator string
		want          string
		ok            bool
	}{
		{transcription.KindMock, "default", "mock:default", true},
		{transcription.KindMock, "backup", "mock:backup", true},
		{transcription.KindWhisper, "large-v3", "whisper:large-v3", true},
		{transcription.KindMock, "attacker-1", "", false},
		{transcription.KindWhisper, "http://169.254.169.254", "", false},
	}
	for _, tt := range tests {
		got, ok := cfg.Configured(tt.kind, tt.locator)
		if ok != tt.ok || (ok && got.Identity() != tt.want) {
			t.Errorf("Configured(%s, %s) = %s, %v", tt.kind, tt.locator, got.Identity(), ok)
		}
	}
	if m, ok := cfg.Named("large"); !ok || m.Parameters["device"] != "cuda" {
		t.Errorf("Named(large) = %+v, %v", m, ok)
	}
	if _, ok := cfg.Named("small"); ok {
		t.Error("Named(small) should miss")
	}

	// Models and Policy work on the copy Orchestrator.Config returns.
	if got := DefaultConfig().Models(); got.Primary.Kind != transcription.KindMock || got.Fallback != nil {
		t.Errorf("DefaultConfig().Models() = %+v", got)
	}
	if !DefaultConfig().Policy().OnTimeout {
		t.Error("DefaultConfig().Policy() should fall back on timeouts")
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.FallbackOnTimeout || cfg.BatchConcurrency != 4 || cfg.TranscribeTimeout != 5*time.Minute {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Primary.Kind != transcription.KindMock {
		t.Errorf("default primary = %+v", cfg.Primary)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if !cfg.Policy().OnTimeout {
		t.Error("policy should follow FallbackOnTimeout")
	}

	empty := &transcription.ModelConfig{}
	cfg.Fallback = empty
	cfg.ApplyDefaults()
	if cfg.Fallback != nil {
		t.Error("an empty fallback should be dropped")
	}

	cfg.Fallback = &transcription.ModelConfig{Kind: transcription.KindMock}
	if err := cfg.Validate(); err == nil {
		t.Error("fallback without locator should fail")
	}
	cfg.Fallback = nil

	cfg.Catalog = map[string]transcription.ModelConfig{"broken": {Kind: transcription.KindMock}}
	if err := cfg.Validate(); err == nil {
		t.Error("named model without locator should fail")
	}
	cfg.Catalog = nil

	cfg.TranscribeTimeout = -1
	cfg.ApplyDefaults()
	if cfg.TranscribeTimeout != -1 {
		t.Errorf("negative timeout rewritten to %s", cfg.TranscribeTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("a disabled timeout should validate: %v", err)
	}

	cfg = DefaultConfig()
	cfg.BatchConcurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero batch concurrency should fail")
	}
}
