package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker(maxFailures int) (*CircuitBreaker, *time.Time) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: maxFailures, Timeout: time.Second})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(2)
	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != StateClosed {
		t.Fatal("expected closed after one failure")
	}
	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Fatal("expected open after two failures")
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("expected fast failure without calling fn, got %v called=%v", err, called)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2)
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	if cb.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker(1)
	_ = cb.Execute(func() error { return errBoom })
	*now = now.Add(2 * time.Second)

	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after cool-down, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(1)
	_ = cb.Execute(func() error { return errBoom })
	*now = now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Errorf("expected open after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	badInput := errors.New("bad input")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, badInput) },
	})
	_ = cb.Execute(func() error { return badInput })
	if cb.State() != StateClosed {
		t.Error("caller errors must not open the circuit")
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "x",
		MaxFailures: 1,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	_ = cb.Execute(func() error { return errBoom })
	cb.Reset()
	if len(transitions) != 2 || transitions[0] != "closed->open" || transitions[1] != "open->closed" {
		t.Errorf("unexpected transitions %v", transitions)
	}
}

func TestState_String(t *testing.T) {
	if State(7).String() != "unknown" || StateHalfOpen.String() != "half-open" {
		t.Error("unexpected state names")
	}
}
