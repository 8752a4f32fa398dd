package market

import "sync"

// SerialID issues monotonically increasing unique offer identifiers.
// Values are never reused for the lifetime of the process.
type SerialID struct {
	mu   sync.Mutex
	next int64
}

// NewSerialID creates a generator starting at the given seed.
func NewSerialID(start int64) *SerialID {
	return &SerialID{next: start}
}

// Next returns the next identifier.
func (s *SerialID) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}
