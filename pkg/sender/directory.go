package sender

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoContact is returned when a recipient has no contact details on file
// for the requested channel. Treated as a permanent delivery failure.
var ErrNoContact = errors.New("sender: no contact on file")

// Contact holds the delivery addresses known for a single recipient.
// Empty fields mean the recipient cannot be reached on that channel.
type Contact struct {
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	PushTokens    []string `json:"push_tokens,omitempty"`
	WebhookURL    string   `json:"webhook_url,omitempty"`
	WebhookSecret string   `json:"webhook_secret,omitempty"`
}

// Directory resolves recipient ids to contact details.
type Directory interface {
	Contact(ctx context.Context, recipientID string) (Contact, error)
}

// StaticDirectory is a fixed in-memory Directory for development and tests.
type StaticDirectory struct {
	contacts map[string]Contact
}

// NewStaticDirectory creates a directory over a fixed contact map.
func NewStaticDirectory(contacts map[string]Contact) *StaticDirectory {
	return &StaticDirectory{contacts: contacts}
}

func (d *StaticDirectory) Contact(_ context.Context, recipientID string) (Contact, error) {
	c, ok := d.contacts[recipientID]
	if !ok {
		return Contact{}, fmt.Errorf("%w: %s", ErrNoContact, recipientID)
	}
	return c, nil
}
