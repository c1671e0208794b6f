package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps audit events in memory. For development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Store(ctx context.Context, event Event) error {
	return s.StoreBatch(ctx, []Event{event})
}

func (s *MemoryStore) StoreBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of all stored events in insertion order.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByAction returns stored events matching the given action.
func (s *MemoryStore) ByAction(action string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
