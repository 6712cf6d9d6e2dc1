package orchestrator

import "testing"

func TestLease(t *testing.T) {
	var released int
	l := newLease(func() { released++ })

	a := l.hold()
	b := l.hold()
	l.done()
	a()
	a()
	if released != 0 {
		t.Fatalf("released with a holder left")
	}
	b()
	if released != 1 {
		t.Errorf("released %d times, want 1", released)
	}
}
