package audit

import (
	"fmt"
	"time"
)

// Result represents the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is a single entry in the delivery audit trail. Action names follow
// "resource.verb", e.g. "notification.created", "task.resolved",
// "queue.paused".
type Event struct {
	ID             string         `json:"id"`
	Action         string         `json:"action"`
	NotificationID string         `json:"notification_id,omitempty"`
	TaskID         string         `json:"task_id,omitempty"`
	RecipientID    string         `json:"recipient_id,omitempty"`
	Channel        string         `json:"channel,omitempty"`
	Result         Result         `json:"result"`
	Error          string         `json:"error,omitempty"`
	RequestID      string         `json:"request_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// WithNotification attaches the notification id.
func WithNotification(id string) EventOption {
	return func(e *Event) { e.NotificationID = id }
}

// WithTask attaches the delivery task id.
func WithTask(id string) EventOption {
	return func(e *Event) { e.TaskID = id }
}

// WithRecipient attaches the recipient id.
func WithRecipient(id string) EventOption {
	return func(e *Event) { e.RecipientID = id }
}

// WithChannel attaches the delivery channel.
func WithChannel(ch string) EventOption {
	return func(e *Event) { e.Channel = ch }
}

// WithMetadata merges extra key/value context into the event.
func WithMetadata(md map[string]any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, len(md))
		}
		for k, v := range md {
			e.Metadata[k] = v
		}
	}
}

// WithRequestID attaches the originating request id.
func WithRequestID(id string) EventOption {
	return func(e *Event) { e.RequestID = id }
}
