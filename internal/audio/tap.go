package audio

import (
	"sync"

	"github.com/faiface/beep"
)

// Tap wraps a beep.Streamer and records the last N samples into a ring
// buffer so the analyser can read what was most recently played.
type Tap struct {
	Source    beep.Streamer
	buffer    [][2]float64
	nextIndex int
	filled    int
	mu        sync.RWMutex
}

func NewTap(src beep.Streamer, ringSize int) *Tap {
	return &Tap{
		Source: src,
		buffer: make([][2]float64, ringSize),
	}
}

func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Source.Stream(samples)
	if n > 0 {
		t.Record(samples[:n])
	}
	return n, ok
}

func (t *Tap) Err() error { return t.Source.Err() }

// Record appends samples to the ring.
func (t *Tap) Record(samples [][2]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range samples {
		t.buffer[t.nextIndex] = s
		t.nextIndex++
		if t.nextIndex >= len(t.buffer) {
			t.nextIndex = 0
		}
	}
	t.filled = min(t.filled+len(samples), len(t.buffer))
}

// Snapshot returns up to the last n recorded samples in chronological order.
func (t *Tap) Snapshot(n int) [][2]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n = min(n, t.filled)
	out := make([][2]float64, n)
	idx := t.nextIndex - n
	if idx < 0 {
		idx += len(t.buffer)
	}
	for i := range out {
		out[i] = t.buffer[idx]
		idx++
		if idx >= len(t.buffer) {
			idx = 0
		}
	}
	return out
}
