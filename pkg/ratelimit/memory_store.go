package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-memory Store for single-process deployments and
// tests. Expired windows are pruned lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// IncrementAndGet implements Store.
func (s *MemoryStore) IncrementAndGet(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[key]
	if !ok || !e.expiresAt.After(now) {
		e = &memoryEntry{expiresAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.expiresAt.Sub(now), nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
