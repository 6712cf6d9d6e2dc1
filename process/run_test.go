package process_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/voxkit/process"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/resilience"
)

func TestRunEcho(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "echo",
		Args:   []string{"hello", "world"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := strings.TrimSpace(string(result.Stdout)); out != "hello world" {
		t.Fatalf("expected 'hello world', got %q", out)
	}
}

func TestRunStdin(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "cat",
		Stdin:  strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "from stdin" {
		t.Fatalf("expected 'from stdin', got %q", result.Stdout)
	}
}

func TestRunExitErrorCarriesStderr(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo 'Invalid data found' >&2; exit 42"},
	})
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.ExitCode != 42 || result.ExitCode != 42 {
		t.Errorf("expected exit code 42, got %d", exitErr.ExitCode)
	}
	if !strings.Contains(exitErr.Stderr, "Invalid data found") {
		t.Errorf("expected stderr tail, got %q", exitErr.Stderr)
	}
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := process.Run(ctx, process.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 100 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRunEmptyBinary(t *testing.T) {
	if _, err := process.Run(context.Background(), process.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestRunEnv(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo $VOXKIT_TEST"},
		Env:    []string{"VOXKIT_TEST=ok"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(string(result.Stdout)) != "ok" {
		t.Errorf("expected env var, got %q", result.Stdout)
	}
}

func TestRunner_AvailabilityAndHealth(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{Binary: "sh"}, provider.ResilienceConfig{})
	if !r.IsAvailable(context.Background()) {
		t.Fatal("expected sh to be available")
	}
	if h := r.Health(context.Background()); h.Status != provider.StatusHealthy {
		t.Errorf("expected healthy, got %s", h.Status)
	}

	missing := process.NewRunner(process.RunnerConfig{Binary: "definitely-not-a-binary-xyz"}, provider.ResilienceConfig{})
	if missing.IsAvailable(context.Background()) {
		t.Error("expected missing binary to be unavailable")
	}
	if h := missing.Health(context.Background()); h.Status != provider.StatusUnavailable {
		t.Errorf("expected unavailable, got %s", h.Status)
	}
}

func TestRunner_Timeout(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{Binary: "sleep", Timeout: 30 * time.Millisecond, GracePeriod: 50 * time.Millisecond}, provider.ResilienceConfig{})
	if _, err := r.Run(context.Background(), "5"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected runner timeout, got %v", err)
	}
}

func TestRunner_CircuitBreakerTrips(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{Binary: "false"}, provider.ResilienceConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{Name: "false", MaxFailures: 2, Timeout: time.Minute},
	})
	for i := 0; i < 2; i++ {
		if _, err := r.Run(context.Background()); err == nil {
			t.Fatal("expected false to fail")
		}
	}
	_, err := r.Run(context.Background())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}
