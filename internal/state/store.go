package state

import (
	"sync"
)

// Store owns the current State. Dispatch is the only way to change it.
type Store struct {
	mu      sync.RWMutex
	current State
	version uint64

	reloading sync.Mutex
	// journal collects deltas dispatched while a reload is fetching. It is
	// nil when no reload is running.
	journal []Delta
}

func NewStore(initial State) *Store {
	return &Store{current: initial}
}

// Reload replaces the state with the result of fetch. fetch runs without the
// lock held; deltas dispatched meanwhile are replayed on top of its result so
// a concurrent write is never lost. On error the state is kept.
func (s *Store) Reload(fetch func() (State, error)) error {
	s.reloading.Lock()
	defer s.reloading.Unlock()

	s.mu.Lock()
	s.journal = []Delta{}
	s.mu.Unlock()

	fresh, err := fetch()

	s.mu.Lock()
	defer s.mu.Unlock()
	journal := s.journal
	s.journal = nil
	if err != nil {
		return err
	}
	for _, d := range journal {
		fresh = Apply(fresh, d)
	}
	s.current = fresh
	s.version++
	return nil
}

// Dispatch merges deltas in order and returns the resulting state.
func (s *Store) Dispatch(deltas ...Delta) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		s.journal = append(s.journal, deltas...)
	}
	for _, d := range deltas {
		s.current = Apply(s.current, d)
	}
	s.version++
	return s.current
}

// Snapshot returns the current state. Callers must treat it as read-only.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Version increases on every Reload and Dispatch.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
