package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/resilience"
)

var errTransient = errors.New("transient failure")

func TestExecuteWithResilience_NilStatePassthrough(t *testing.T) {
	got, err := ExecuteWithResilience(context.Background(), nil, func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("expected passthrough, got %d %v", got, err)
	}
	if BuildResilience(ResilienceConfig{}) != nil {
		t.Error("expected nil state for empty config")
	}
}

func TestExecuteWithResilience_RetriesUntilSuccess(t *testing.T) {
	state := BuildResilience(ResilienceConfig{
		Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})
	calls := 0
	got, err := ExecuteWithResilience(context.Background(), state, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	if err != nil || got != "ok" || calls != 3 {
		t.Fatalf("expected success on third call, got %q %v after %d calls", got, err, calls)
	}
}

func TestExecuteWithResilience_CircuitOpenIsServiceUnavailable(t *testing.T) {
	state := BuildResilience(ResilienceConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{Name: "whisper", MaxFailures: 1, Timeout: time.Minute},
	})
	_, err := ExecuteWithResilience(context.Background(), state, func() (int, error) { return 0, errTransient })
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected raw error from fn, got %v", err)
	}
	if state.CircuitState() != resilience.StateOpen {
		t.Fatalf("expected open circuit, got %s", state.CircuitState())
	}

	_, err = ExecuteWithResilience(context.Background(), state, func() (int, error) { return 1, nil })
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeServiceUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Error("expected ErrCircuitOpen in chain")
	}
}

func TestExecuteWithResilience_BulkheadFull(t *testing.T) {
	state := BuildResilience(ResilienceConfig{
		Bulkhead: &resilience.BulkheadConfig{MaxConcurrent: 1},
	})
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = ExecuteWithResilience(context.Background(), state, func() (int, error) {
			close(started)
			<-release
			return 0, nil
		})
	}()
	<-started
	defer close(release)

	_, err := ExecuteWithResilience(context.Background(), state, func() (int, error) { return 0, nil })
	if apperrors.CodeOf(err) != apperrors.ErrCodeServiceUnavailable {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestExecuteWithResilience_RateLimitWaitCanceled(t *testing.T) {
	state := BuildResilience(ResilienceConfig{
		RateLimiter: &resilience.RateLimiterConfig{Rate: 0.01, Burst: 1},
	})
	_, _ = ExecuteWithResilience(context.Background(), state, func() (int, error) { return 0, nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExecuteWithResilience(ctx, state, func() (int, error) { return 0, nil })
	if apperrors.CodeOf(err) != apperrors.ErrCodeCanceled {
		t.Errorf("expected CANCELED, got %v", err)
	}
}
