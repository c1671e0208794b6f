package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMessageNotFound is returned when a message does not exist for the recipient.
	ErrMessageNotFound = errors.New("inbox: message not found")
	// ErrInvalidMessage is returned when a message is missing required fields.
	ErrInvalidMessage = errors.New("inbox: invalid message")
)

// Storage handles inbox message persistence and retrieval.
type Storage interface {
	// Put stores a message. Storing a message with the same
	// (recipient, notification) pair replaces the previous entry.
	Put(ctx context.Context, msg Message) error

	// Get retrieves a single message scoped to a recipient.
	Get(ctx context.Context, recipientID string, msgID uuid.UUID) (*Message, error)

	// List returns messages for a recipient, newest first.
	List(ctx context.Context, recipientID string, opts ListOptions) ([]Message, error)

	// MarkRead marks the given messages as read.
	MarkRead(ctx context.Context, recipientID string, msgIDs ...uuid.UUID) error

	// Delete removes the given messages.
	Delete(ctx context.Context, recipientID string, msgIDs ...uuid.UUID) error

	// CountUnread returns the number of unread, unexpired messages.
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// ListOptions provides filtering and pagination for listing messages.
type ListOptions struct {
	Limit      int        // Maximum number of messages to return (0 = no limit)
	Offset     int        // Number of messages to skip for pagination
	OnlyUnread bool       // When true, only return unread messages
	Category   string     // If set, only return messages in this category
	Since      *time.Time // If set, only return messages created after this time
}
