package testutil

import "sync"

// IDSource hands out fixture ids 1, 2, 3, ...
//
// Reset rewinds the source so the same fixture set can be rebuilt with
// identical ids. Safe for concurrent use.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

// NewIDSource returns a source whose first id is 1.
func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns the next id.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Last returns the most recently issued id, or 0.
func (s *IDSource) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset rewinds the source.
func (s *IDSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = 0
}
