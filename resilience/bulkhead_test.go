package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	rejected := 0
	b := NewBulkhead(BulkheadConfig{Name: "ffmpeg", MaxConcurrent: 1, OnReject: func(string) { rejected++ }})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := b.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected != 1 {
		t.Errorf("expected one rejection, got %d", rejected)
	}
	if b.InUse() != 1 || b.Available() != 0 {
		t.Errorf("expected one slot in use, got in_use=%d available=%d", b.InUse(), b.Available())
	}
	close(release)
}

func TestBulkhead_WaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	if err := b.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2, MaxWait: time.Second})
	var mu sync.Mutex
	running, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func() error {
				mu.Lock()
				running++
				peak = max(peak, running)
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if peak > 2 {
		t.Errorf("expected at most 2 concurrent calls, saw %d", peak)
	}
}

func TestExecuteWithResult(t *testing.T) {
	b := NewBulkhead(DefaultBulkheadConfig("x"))
	got, err := ExecuteWithResult(context.Background(), b, func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("expected 42, got %d %v", got, err)
	}
}
