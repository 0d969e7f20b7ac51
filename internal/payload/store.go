package payload

import "sync"

// Store holds the single most recent record. Replace and Snapshot take the
// lock only for the swap/copy itself; decoding and I/O always happen outside.
// Records are immutable once stored, so a snapshot may share the record's
// maps with the writer that produced it.
type Store struct {
	mu         sync.RWMutex
	current    Record
	generation uint64
}

// NewStore creates an empty store: Timestamp 0, no fields, generation 0.
func NewStore() *Store {
	return &Store{}
}

// Replace atomically swaps in rec and bumps the generation.
func (s *Store) Replace(rec Record) {
	s.mu.Lock()
	s.current = rec
	s.generation++
	s.mu.Unlock()
}

// Snapshot returns the current record and its generation. The record is
// never torn: all fields come from the same Replace call.
func (s *Store) Snapshot() (Record, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.generation
}

// Generation returns the current generation without copying the record.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// NewerThan reports whether a Replace has completed since generation gen.
// Pollers pass the generation from their last snapshot to detect change.
func (s *Store) NewerThan(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation > gen
}
