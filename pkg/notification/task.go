package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a DeliveryTask.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusInFlight  TaskStatus = "in_flight"
	TaskStatusRetryWait TaskStatus = "retry_wait"
	TaskStatusSent      TaskStatus = "sent"
	TaskStatusFailed    TaskStatus = "failed_permanent"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions. A task
// never regresses from a terminal status back to pending.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSent || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TaskKey is the idempotency key of a delivery task: exactly one task exists
// per (notification, recipient, channel) triple within a generation. Each
// recurrence firing opens a new generation, so re-enqueues inside one firing
// are no-ops while successive firings still fan out.
type TaskKey struct {
	NotificationID uuid.UUID
	RecipientID    string
	Channel        Channel
	Generation     int
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%s/%s/%s/g%d", k.NotificationID, k.RecipientID, k.Channel, k.Generation)
}

// DeliveryTask is the unit of work: one delivery of one notification to one
// recipient over one channel. Created by the orchestrator at enqueue time and
// mutated only by the queue and tracker afterwards.
type DeliveryTask struct {
	ID             uuid.UUID  `json:"id"`
	NotificationID uuid.UUID  `json:"notification_id"`
	RecipientID    string     `json:"recipient_id"`
	Channel        Channel    `json:"channel"`
	Priority       Priority   `json:"priority"`
	Status         TaskStatus `json:"status"`

	// Generation distinguishes task sets produced by successive recurrence
	// firings of the same notification. Zero for one-shot sends.
	Generation int `json:"generation"`

	AttemptCount int     `json:"attempt_count"`
	MaxAttempts  int     `json:"max_attempts"`
	LastError    *string `json:"last_error,omitempty"`

	// EligibleAt is when the task becomes visible for dequeue. For retry_wait
	// tasks NextAttemptAt governs visibility instead.
	EligibleAt    time.Time  `json:"eligible_at"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`

	// RenderedContent is the channel-specific payload produced by the
	// template resolver, serialized so the queue never inspects its shape.
	RenderedContent json.RawMessage `json:"rendered_content,omitempty"`

	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Key returns the task's idempotency key.
func (t *DeliveryTask) Key() TaskKey {
	return TaskKey{NotificationID: t.NotificationID, RecipientID: t.RecipientID, Channel: t.Channel, Generation: t.Generation}
}

// VisibleAt returns the instant from which the task may be claimed.
func (t *DeliveryTask) VisibleAt() time.Time {
	if t.Status == TaskStatusRetryWait && t.NextAttemptAt != nil {
		return *t.NextAttemptAt
	}
	return t.EligibleAt
}

// StatusCounts aggregates task states for a notification, exposed by the
// orchestrator's status query.
type StatusCounts struct {
	Pending   int `json:"pending"`
	InFlight  int `json:"in_flight"`
	RetryWait int `json:"retry_wait"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed_permanent"`
	Cancelled int `json:"cancelled"`
}

// Total returns the number of tasks across all states.
func (c StatusCounts) Total() int {
	return c.Pending + c.InFlight + c.RetryWait + c.Sent + c.Failed + c.Cancelled
}

// AllTerminal reports whether every task has reached a terminal state, which
// completes the parent notification.
func (c StatusCounts) AllTerminal() bool {
	return c.Pending == 0 && c.InFlight == 0 && c.RetryWait == 0 && c.Total() > 0
}

// Add increments the counter for the given status.
func (c *StatusCounts) Add(s TaskStatus) {
	switch s {
	case TaskStatusPending:
		c.Pending++
	case TaskStatusInFlight:
		c.InFlight++
	case TaskStatusRetryWait:
		c.RetryWait++
	case TaskStatusSent:
		c.Sent++
	case TaskStatusFailed:
		c.Failed++
	case TaskStatusCancelled:
		c.Cancelled++
	}
}
