package trace

import "sync"

// Ring is a fixed-capacity line buffer. Appending past capacity overwrites
// the oldest line, so a burst of tracer output can never block the reader.
// Single writer (the capture goroutine), single reader (Poll).
type Ring struct {
	mu    sync.Mutex
	lines []string
	start int
	count int
}

// NewRing returns a ring holding at most capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{lines: make([]string, capacity)}
}

// Append adds a line, discarding the oldest when full.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.start + r.count) % len(r.lines)
	r.lines[idx] = line
	if r.count < len(r.lines) {
		r.count++
	} else {
		r.start = (r.start + 1) % len(r.lines)
	}
}

// Drain returns the buffered lines in arrival order and empties the ring.
// Non-blocking; returns nil when nothing arrived since the last drain.
func (r *Ring) Drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return nil
	}
	out := make([]string, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.lines[(r.start+i)%len(r.lines)]
	}
	r.start = 0
	r.count = 0
	return out
}

// Len reports the number of buffered lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
