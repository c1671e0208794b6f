package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreRequired is returned when a limiter is built without a store.
	ErrStoreRequired = errors.New("store is required")

	// ErrInvalidLimit is returned for a non-positive limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidWindow is returned for a non-positive window.
	ErrInvalidWindow = errors.New("window must be positive")

	// ErrKeyRequired is returned for an empty key.
	ErrKeyRequired = errors.New("key is required")
)

// Result describes one rate limit check.
type Result struct {
	// Allowed indicates whether the request fits the current window.
	Allowed bool

	// Limit is the maximum count allowed per window.
	Limit int

	// Remaining is how much budget is left in the current window.
	Remaining int

	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before retrying. Zero when allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the storage backend for window counters.
type Store interface {
	// IncrementAndGet atomically increments the counter for key and returns
	// the new value with the remaining window TTL. The first increment in a
	// window sets the TTL.
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (current int64, ttl time.Duration, err error)

	// Reset removes the counter for key.
	Reset(ctx context.Context, key string) error
}

// Limiter is a fixed-window rate limiter: at most Limit events per Window
// per key.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// New creates a fixed-window limiter.
func New(store Store, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &Limiter{store: store, limit: limit, window: window}, nil
}

// Check consumes one slot for key and reports whether it fit the window.
func (l *Limiter) Check(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	current, ttl, err := l.store.IncrementAndGet(ctx, key, l.window)
	if err != nil {
		return nil, err
	}
	remaining := int64(l.limit) - current
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   current <= int64(l.limit),
		Limit:     l.limit,
		Remaining: int(remaining),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// Reset clears the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// Allow adapts the limiter to the allow/retry-after shape the dispatch
// worker consumes.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := l.Check(ctx, key)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed, res.RetryAfter(), nil
}
