package frame

import (
	"sync"
	"time"
)

// Loop runs a callback every frame until stopped. It owns the registration
// of its next tick, so Stop revokes that registration instead of leaving a
// flag for the tick to find.
type Loop struct {
	mu       sync.Mutex
	s        *Scheduler
	fn       Callback
	next     ID
	running  bool
	maxDelta time.Duration
}

// Loop starts fn on the next frame and reschedules it after every run.
// Tick deltas are clamped to maxDelta when it is positive.
func (s *Scheduler) Loop(maxDelta time.Duration, fn Callback) *Loop {
	l := &Loop{s: s, fn: fn, running: true, maxDelta: maxDelta}
	l.mu.Lock()
	l.next = s.Request(l.tick)
	l.mu.Unlock()
	return l
}

func (l *Loop) tick(t Tick) {
	if l.maxDelta > 0 && t.Delta > l.maxDelta {
		t.Delta = l.maxDelta
	}
	l.fn(t)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.next = l.s.Request(l.tick)
	}
}

// Running reports whether the loop still has a tick scheduled or running.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Stop cancels the pending tick. Safe to call more than once and from
// inside the loop's own callback.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	l.s.Cancel(l.next)
}
