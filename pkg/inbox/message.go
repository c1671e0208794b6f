package inbox

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single in-app inbox entry for a recipient.
type Message struct {
	ID             uuid.UUID      `json:"id"`
	RecipientID    string         `json:"recipient_id"`
	NotificationID uuid.UUID      `json:"notification_id"`
	Category       string         `json:"category,omitempty"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Data           map[string]any `json:"data,omitempty"`
	Read           bool           `json:"read"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
}

// Expired reports whether the message is past its expiry, if one is set.
func (m *Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

func (m *Message) markRead(now time.Time) {
	m.Read = true
	m.ReadAt = &now
}
