// Package frame is the frame clock: callbacks requested for the next
// display frame, run in request order by the host's update loop.
package frame

import (
	"sync"
	"time"
)

// Tick describes one frame.
type Tick struct {
	Frame uint64
	Now   time.Duration // monotonic time since the clock started
	Delta time.Duration // zero on the first frame
}

// Callback runs once for the frame it was requested for.
type Callback func(Tick)

// ID identifies a pending frame request.
type ID uint64

type request struct {
	id ID
	cb Callback
}

// Scheduler collects one-shot frame requests and runs them when the host
// advances the clock. Request, Cancel and Post may be called from any
// goroutine; callbacks always run on the goroutine calling Advance.
type Scheduler struct {
	mu       sync.Mutex
	nextID   ID
	pending  []request
	live     map[ID]struct{}
	posted   []func()
	frame    uint64
	last     time.Duration
	advanced bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{live: make(map[ID]struct{})}
}

// Request schedules cb for the next frame.
func (s *Scheduler) Request(cb Callback) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.pending = append(s.pending, request{id: id, cb: cb})
	s.live[id] = struct{}{}
	return id
}

// Cancel revokes a request. A cancelled callback is never invoked, even if
// the current frame has already collected it. It reports whether the
// request was still pending.
func (s *Scheduler) Cancel(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; !ok {
		return false
	}
	delete(s.live, id)
	for i, r := range s.pending {
		if r.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return true
}

// Post queues fn to run at the start of the next frame, before any frame
// callback. It is the way for other goroutines to reach frame state.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
}

// Pending returns the number of outstanding frame requests.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Advance runs one frame at monotonic time now: posted functions first,
// then every callback requested before this call. Callbacks requested while
// the frame runs wait for the next one.
func (s *Scheduler) Advance(now time.Duration) Tick {
	s.mu.Lock()
	tick := Tick{Frame: s.frame, Now: now}
	if s.advanced && now > s.last {
		tick.Delta = now - s.last
	}
	s.frame++
	s.last = now
	s.advanced = true
	posted := s.posted
	s.posted = nil
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range posted {
		fn()
	}
	for _, r := range batch {
		if !s.claim(r.id) {
			continue
		}
		r.cb(tick)
	}
	return tick
}

func (s *Scheduler) claim(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; !ok {
		return false
	}
	delete(s.live, id)
	return true
}
