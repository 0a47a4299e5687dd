package domain

import "sync"

// Segments tracks per-page processing progress, one segment per page in page order.
// A segment flips to done at most once; unknown indices are ignored.
type Segments struct {
	mu        sync.RWMutex
	done      []bool
	completed int
}

// NewSegments creates n pending segments
func NewSegments(n int) *Segments {
	if n < 0 {
		n = 0
	}
	return &Segments{done: make([]bool, n)}
}

// Len returns the number of segments
func (s *Segments) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.done)
}

// Mark marks segment i as done. It returns true only when the call changed state.
func (s *Segments) Mark(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.done) || s.done[i] {
		return false
	}
	s.done[i] = true
	s.completed++
	return true
}

// Done reports whether segment i is done
func (s *Segments) Done(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return i >= 0 && i < len(s.done) && s.done[i]
}

// Completed returns the number of done segments
func (s *Segments) Completed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed
}

// Snapshot returns a copy of the done flags
func (s *Segments) Snapshot() []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, len(s.done))
	copy(out, s.done)
	return out
}
