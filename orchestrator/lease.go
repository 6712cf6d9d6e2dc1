package orchestrator

import (
	"sync"
	"sync/atomic"
)

// lease runs release once every holder has let go. The creator holds the
// first reference.
type lease struct {
	refs    atomic.Int32
	release func()
}

func newLease(release func()) *lease {
	l := &lease{release: release}
	l.refs.Store(1)
	return l
}

// hold adds a holder. The returned func drops it and is safe to call twice.
func (l *lease) hold() func() {
	l.refs.Add(1)
	var once sync.Once
	return func() { once.Do(l.done) }
}

func (l *lease) done() {
	if l.refs.Add(-1) == 0 {
		l.release()
	}
}
