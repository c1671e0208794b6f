package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notify/pkg/notification"
)

// EnqueuerRepository covers notification creation and task enqueueing.
type EnqueuerRepository interface {
	// CreateNotification persists a new notification record.
	CreateNotification(ctx context.Context, n *notification.Notification) error

	// EnqueueTasks persists a batch of delivery tasks atomically: either all
	// new tasks are stored or none are. Tasks whose (notification,
	// recipient, channel, generation) key already exists are skipped as
	// no-ops. Returns
	// the number of tasks actually created.
	EnqueueTasks(ctx context.Context, tasks []*notification.DeliveryTask) (int, error)

	// SetNotificationStatus updates the notification lifecycle status.
	SetNotificationStatus(ctx context.Context, id uuid.UUID, status notification.Status) error
}

// WorkerRepository covers the claim/resolve cycle driven by the worker pool.
type WorkerRepository interface {
	// ClaimBatch atomically claims up to limit visible tasks for the given
	// worker: each claimed task is flipped in flight with an ownership lock,
	// so no other worker can claim it until the lock expires. Tasks are
	// returned in strict priority order, eligibility order within a tier.
	// When drain is set, pending tasks scheduled for the future become
	// visible immediately; retry backoff is still honoured. Returns
	// ErrNoTaskToClaim when nothing is visible.
	ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration, drain bool) ([]*notification.DeliveryTask, error)

	// Resolve applies a send outcome to an in-flight task through the
	// tracker state machine. If the parent notification was cancelled while
	// the send was in flight, the outcome is discarded and the task forced
	// to cancelled. When the outcome makes every task of the notification
	// terminal, the notification is marked completed.
	Resolve(ctx context.Context, taskID uuid.UUID, outcome notification.Outcome) error

	// Defer returns an in-flight task to pending with a new eligibility
	// time, without counting an attempt. Used for rate-limit deferrals.
	Defer(ctx context.Context, taskID uuid.UUID, until time.Time) error

	// ReleaseExpired recovers tasks whose worker lock has expired, resetting
	// them to pending. Returns the number of recovered tasks.
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)
}

// SchedulerRepository covers the periodic scheduling tick.
type SchedulerRepository interface {
	// PromoteDue moves retry_wait tasks whose backoff has elapsed back to
	// pending. Returns the number of promoted tasks.
	PromoteDue(ctx context.Context, now time.Time) (int, error)

	// ListRecurring returns active (non-terminal) notifications carrying a
	// recurrence rule.
	ListRecurring(ctx context.Context) ([]*notification.Notification, error)

	// MarkFired records a recurrence firing.
	MarkFired(ctx context.Context, id uuid.UUID, firedAt time.Time) error
}

// QueryRepository covers status queries and administrative operations.
type QueryRepository interface {
	// GetNotification returns a notification by id.
	GetNotification(ctx context.Context, id uuid.UUID) (*notification.Notification, error)

	// GetTask returns a delivery task by id.
	GetTask(ctx context.Context, id uuid.UUID) (*notification.DeliveryTask, error)

	// StatusCounts aggregates task states for a notification.
	StatusCounts(ctx context.Context, id uuid.UUID) (notification.StatusCounts, error)

	// CancelNotification marks the notification cancelled and transitions
	// all its non-terminal tasks to cancelled. Idempotent.
	CancelNotification(ctx context.Context, id uuid.UUID) error

	// ResetTask is the manual admin retry: a failed_permanent task is reset
	// to pending with attempt count zero.
	ResetTask(ctx context.Context, taskID uuid.UUID) error
}

// Repository combines all storage capabilities of the dispatch queue.
type Repository interface {
	EnqueuerRepository
	WorkerRepository
	SchedulerRepository
	QueryRepository
}
