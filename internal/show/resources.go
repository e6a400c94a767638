package show

import (
	"sort"
	"sync"
)

// Resource kinds tracked by modes.
const (
	ResourceBuffer    = "buffer"
	ResourceImage     = "image"
	ResourceShader    = "shader"
	ResourceAudio     = "audio"
	ResourceFrameLoop = "frame-loop"
	ResourceTilt      = "tilt"
)

// ResourceCounter counts live resources by kind. Modes acquire on
// allocation and release on teardown, so a stopped mode leaves no count
// behind. A nil counter ignores all calls.
type ResourceCounter struct {
	mu   sync.Mutex
	live map[string]int
	peak int
}

func NewResourceCounter() *ResourceCounter {
	return &ResourceCounter{live: make(map[string]int)}
}

func (c *ResourceCounter) Acquire(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live[kind]++
	if total := c.totalLocked(); total > c.peak {
		c.peak = total
	}
}

func (c *ResourceCounter) Release(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live[kind] > 0 {
		c.live[kind]--
	}
}

// Live returns the number of live resources of all kinds.
func (c *ResourceCounter) Live() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

// Peak returns the highest Live value seen.
func (c *ResourceCounter) Peak() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// Kinds returns the kinds with live resources, sorted.
func (c *ResourceCounter) Kinds() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k, n := range c.live {
		if n > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (c *ResourceCounter) totalLocked() int {
	total := 0
	for _, n := range c.live {
		total += n
	}
	return total
}
