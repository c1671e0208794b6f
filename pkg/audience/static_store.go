package audience

import (
	"context"

	"github.com/campushub/notify/pkg/notification"
)

// StaticUser is one directory entry of a StaticUserStore.
type StaticUser struct {
	ID   string
	Role notification.Role
}

// StaticUserStore is an in-memory UserStore and SegmentStore for tests and
// local development.
type StaticUserStore struct {
	Users    []StaticUser
	Segments map[string][]string
}

// AllIDs implements UserStore.
func (s *StaticUserStore) AllIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.Users))
	for _, u := range s.Users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// IDsByRole implements UserStore.
func (s *StaticUserStore) IDsByRole(_ context.Context, role notification.Role) ([]string, error) {
	var ids []string
	for _, u := range s.Users {
		if u.Role == role {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

// ResolveSegment implements SegmentStore.
func (s *StaticUserStore) ResolveSegment(_ context.Context, segmentID string) ([]string, error) {
	ids, ok := s.Segments[segmentID]
	if !ok {
		return nil, ErrSegmentNotFound
	}
	return ids, nil
}
