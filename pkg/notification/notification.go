package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notify/pkg/schedule"
)

// Status is the lifecycle state of a Notification.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusScheduled   Status = "scheduled"
	StatusDispatching Status = "dispatching"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further status transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Cancellable reports whether a notification in this status may still be
// cancelled. Completed notifications cannot be; cancelling while dispatching
// stops the remaining tasks but already-sent deliveries are not retracted.
func (s Status) Cancellable() bool {
	return s == StatusDraft || s == StatusScheduled || s == StatusDispatching
}

// Notification is a logical send request. It is immutable once dispatching
// begins, except for cancellation.
type Notification struct {
	ID         uuid.UUID         `json:"id"`
	Creator    string            `json:"creator"`
	Title      string            `json:"title"`
	Body       string            `json:"body,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
	Category   string            `json:"category,omitempty"`
	Priority   Priority          `json:"priority"`
	Channels   []Channel         `json:"channels"`
	Audience   AudienceSpec      `json:"audience"`

	// ScheduledFor delays eligibility to a fixed future time. A past value
	// means immediate eligibility, never a silent drop.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	// Recurrence, when set, re-arms the notification after each firing: the
	// scheduler creates the next generation's tasks at every occurrence.
	Recurrence *schedule.Rule `json:"recurrence,omitempty"`

	// LastFiredAt tracks the most recent recurrence firing; nil until the
	// first generation has been created.
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`

	// Generation counts recurrence firings. The initial task set is
	// generation zero; MarkFired advances it.
	Generation int `json:"generation"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Recurring reports whether the notification carries a recurrence rule.
func (n *Notification) Recurring() bool {
	return n.Recurrence != nil
}
