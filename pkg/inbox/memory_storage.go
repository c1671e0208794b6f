package inbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	messages map[string][]Message    // recipientID -> messages
	mu       sync.RWMutex
}

// NewMemoryStorage creates a new in-memory inbox storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		messages: make(map[string][]Message),
	}
}

func (s *MemoryStorage) Put(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == uuid.Nil || msg.RecipientID == "" {
		return ErrInvalidMessage
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	existing := s.messages[msg.RecipientID]

	// Redelivery of the same notification replaces the earlier entry.
	if msg.NotificationID != uuid.Nil {
		for i, m := range existing {
			if m.NotificationID == msg.NotificationID {
				existing[i] = msg
				return nil
			}
		}
	}

	s.messages[msg.RecipientID] = append(existing, msg)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, recipientID string, msgID uuid.UUID) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages[recipientID] {
		if m.ID == msgID {
			// Return a copy to prevent external mutation of stored data
			msg := m
			return &msg, nil
		}
	}

	return nil, ErrMessageNotFound
}

func (s *MemoryStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()

	var filtered []Message
	for _, m := range s.messages[recipientID] {
		if m.Expired(now) {
			continue
		}
		if opts.OnlyUnread && m.Read {
			continue
		}
		if opts.Category != "" && m.Category != opts.Category {
			continue
		}
		if opts.Since != nil && m.CreatedAt.Before(*opts.Since) {
			continue
		}
		filtered = append(filtered, m)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Message{}, nil
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, recipientID string, msgIDs ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[recipientID]
	if len(msgs) == 0 {
		return nil
	}

	idSet := make(map[uuid.UUID]bool, len(msgIDs))
	for _, id := range msgIDs {
		idSet[id] = true
	}

	now := time.Now()
	for i := range msgs {
		if idSet[msgs[i].ID] && !msgs[i].Read {
			msgs[i].markRead(now)
		}
	}

	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, recipientID string, msgIDs ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[recipientID]
	if len(msgs) == 0 {
		return nil
	}

	idSet := make(map[uuid.UUID]bool, len(msgIDs))
	for _, id := range msgIDs {
		idSet[id] = true
	}

	var kept []Message
	for _, m := range msgs {
		if !idSet[m.ID] {
			kept = append(kept, m)
		}
	}

	s.messages[recipientID] = kept
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	count := 0
	for _, m := range s.messages[recipientID] {
		if !m.Read && !m.Expired(now) {
			count++
		}
	}

	return count, nil
}
