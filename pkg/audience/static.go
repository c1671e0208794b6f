package audience

import (
	"context"

	"github.com/campushub/notify/pkg/notification"
)

// StaticDirectory is an in-memory UserStore mapping user ids to roles, for
// tests and local development.
type StaticDirectory map[string]notification.Role

// AllIDs implements UserStore.
func (d StaticDirectory) AllIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	return ids, nil
}

// IDsByRole implements UserStore.
func (d StaticDirectory) IDsByRole(_ context.Context, role notification.Role) ([]string, error) {
	var ids []string
	for id, r := range d {
		if r == role {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// StaticSegments is an in-memory SegmentStore for tests and local
// development.
type StaticSegments map[string][]string

// ResolveSegment implements SegmentStore.
func (s StaticSegments) ResolveSegment(_ context.Context, segmentID string) ([]string, error) {
	ids, ok := s[segmentID]
	if !ok {
		return nil, ErrSegmentNotFound
	}
	return ids, nil
}
