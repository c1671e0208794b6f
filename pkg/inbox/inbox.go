package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Inbox wraps a Storage with ID assignment and bulk read operations.
type Inbox struct {
	storage Storage
	logger  *slog.Logger
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger for the Inbox.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Inbox) {
		b.logger = logger
	}
}

// New creates an inbox backed by the given storage.
func New(storage Storage, opts ...Option) *Inbox {
	b := &Inbox{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Put stores a message, assigning an ID and creation time when missing.
func (b *Inbox) Put(ctx context.Context, msg Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	if err := b.storage.Put(ctx, msg); err != nil {
		return fmt.Errorf("failed to store inbox message: %w", err)
	}
	return nil
}

func (b *Inbox) Get(ctx context.Context, recipientID string, msgID uuid.UUID) (*Message, error) {
	return b.storage.Get(ctx, recipientID, msgID)
}

func (b *Inbox) List(ctx context.Context, recipientID string, opts ListOptions) ([]Message, error) {
	return b.storage.List(ctx, recipientID, opts)
}

func (b *Inbox) MarkRead(ctx context.Context, recipientID string, msgIDs ...uuid.UUID) error {
	return b.storage.MarkRead(ctx, recipientID, msgIDs...)
}

// MarkAllRead marks every unread message for the recipient as read.
func (b *Inbox) MarkAllRead(ctx context.Context, recipientID string) error {
	msgs, err := b.storage.List(ctx, recipientID, ListOptions{OnlyUnread: true})
	if err != nil {
		return err
	}

	if len(msgs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return b.storage.MarkRead(ctx, recipientID, ids...)
}

func (b *Inbox) Delete(ctx context.Context, recipientID string, msgIDs ...uuid.UUID) error {
	return b.storage.Delete(ctx, recipientID, msgIDs...)
}

func (b *Inbox) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return b.storage.CountUnread(ctx, recipientID)
}

// Storage returns the underlying message storage.
func (b *Inbox) Storage() Storage {
	return b.storage
}
