package audience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/campushub/notify/pkg/notification"
)

var (
	// ErrUserStoreNil is returned when a resolver is built without a user store.
	ErrUserStoreNil = errors.New("user store cannot be nil")

	// ErrSegmentNotFound is the sentinel a SegmentStore returns for an
	// unknown or deleted segment. The resolver converts it into an empty
	// audience instead of failing the send.
	ErrSegmentNotFound = errors.New("segment not found")
)

// UserStore provides read access to the platform's user directory.
type UserStore interface {
	// AllIDs returns every active user id.
	AllIDs(ctx context.Context) ([]string, error)

	// IDsByRole returns the ids of active users holding the given role.
	IDsByRole(ctx context.Context, role notification.Role) ([]string, error)
}

// SegmentStore resolves saved segments into member ids. Implementations
// should return ErrSegmentNotFound for unknown segments.
type SegmentStore interface {
	ResolveSegment(ctx context.Context, segmentID string) ([]string, error)
}

// Resolver expands audience specs into recipient id sets.
type Resolver struct {
	users    UserStore
	segments SegmentStore
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSegments attaches a segment store. Without one, segment specs resolve
// to an empty audience.
func WithSegments(s SegmentStore) ResolverOption {
	return func(r *Resolver) { r.segments = s }
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates an audience resolver backed by the given user store.
func NewResolver(users UserStore, opts ...ResolverOption) (*Resolver, error) {
	if users == nil {
		return nil, ErrUserStoreNil
	}
	r := &Resolver{users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve expands spec into a sorted, deduplicated recipient id list.
func (r *Resolver) Resolve(ctx context.Context, spec notification.AudienceSpec) ([]string, error) {
	var (
		ids []string
		err error
	)
	switch spec.Kind {
	case notification.AudienceAll:
		ids, err = r.users.AllIDs(ctx)
	case notification.AudienceRole:
		ids, err = r.users.IDsByRole(ctx, spec.Role)
	case notification.AudienceIDs:
		ids = spec.IDs
	case notification.AudienceSegment:
		ids, err = r.resolveSegment(ctx, spec.SegmentID)
	default:
		return nil, fmt.Errorf("%w: kind %q", notification.ErrInvalidAudience, spec.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve audience %q: %w", spec.Kind, err)
	}
	return dedupe(ids), nil
}

func (r *Resolver) resolveSegment(ctx context.Context, segmentID string) ([]string, error) {
	if r.segments == nil {
		r.logger.WarnContext(ctx, "no segment store configured, resolving to empty audience",
			slog.String("segment_id", segmentID))
		return nil, nil
	}
	ids, err := r.segments.ResolveSegment(ctx, segmentID)
	if err != nil {
		if errors.Is(err, ErrSegmentNotFound) {
			r.logger.WarnContext(ctx, "segment not found, resolving to empty audience",
				slog.String("segment_id", segmentID))
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
