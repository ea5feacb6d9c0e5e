// Package progress keeps the polled state of long-running operations for
// the lifetime of the process.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is an operation record that can copy itself and report completion
type State[T any] interface {
	// Snapshot returns a copy sharing no mutable memory with the receiver
	Snapshot() T
	// Terminal reports whether the operation finished and when
	Terminal() (bool, time.Time)
}

// Store maps operation ids to their state. The owning task writes through
// Update; any number of pollers read snapshots through Get.
type Store[T State[T]] struct {
	mu    sync.RWMutex
	items map[uuid.UUID]T
}

// NewStore creates an empty store
func NewStore[T State[T]]() *Store[T] {
	return &Store[T]{items: make(map[uuid.UUID]T)}
}

// Create registers a new operation, replacing any previous one with the same id
func (s *Store[T]) Create(id uuid.UUID, initial T) {
	s.mu.Lock()
	s.items[id] = initial
	s.mu.Unlock()
}

// Update applies fn to the stored state; false when id is unknown
func (s *Store[T]) Update(id uuid.UUID, fn func(state *T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[id]
	if !ok {
		return false
	}
	fn(&v)
	s.items[id] = v
	return true
}

// Get returns a snapshot of the operation
func (s *Store[T]) Get(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return v.Snapshot(), true
}

// Prune removes finished operations completed before cutoff
func (s *Store[T]) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, v := range s.items {
		if done, at := v.Terminal(); done && at.Before(cutoff) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked operations
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
