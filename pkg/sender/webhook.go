package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/webhook"
)

// webhookEnvelope is the JSON document POSTed to subscriber endpoints.
type webhookEnvelope struct {
	NotificationID string          `json:"notification_id"`
	RecipientID    string          `json:"recipient_id"`
	Attempt        int             `json:"attempt"`
	SentAt         time.Time       `json:"sent_at"`
	Payload        json.RawMessage `json:"payload"`
}

// Webhook delivers webhook tasks to each recipient's registered endpoint,
// signing every payload with the recipient's endpoint secret.
type Webhook struct {
	client    *webhook.Client
	directory Directory
	timeout   time.Duration

	mu       sync.Mutex
	circuits map[string]*webhook.CircuitBreaker // keyed by endpoint URL
}

// WebhookOption configures a Webhook sender.
type WebhookOption func(*Webhook)

// WithRequestTimeout sets the per-delivery HTTP timeout.
func WithRequestTimeout(timeout time.Duration) WebhookOption {
	return func(s *Webhook) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithClient overrides the underlying webhook client.
func WithClient(client *webhook.Client) WebhookOption {
	return func(s *Webhook) {
		if client != nil {
			s.client = client
		}
	}
}

// NewWebhook creates the webhook channel sender.
func NewWebhook(directory Directory, opts ...WebhookOption) *Webhook {
	s := &Webhook{
		client:    webhook.NewClient(),
		directory: directory,
		timeout:   10 * time.Second,
		circuits:  make(map[string]*webhook.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Webhook) Send(ctx context.Context, task *notification.DeliveryTask) notification.Outcome {
	content, err := decodeFor(task, notification.ChannelWebhook)
	if err != nil {
		return classify(err)
	}

	contact, err := s.directory.Contact(ctx, task.RecipientID)
	if err != nil {
		return classify(err)
	}
	if contact.WebhookURL == "" {
		return classify(fmt.Errorf("%w: recipient %s has no webhook endpoint", ErrNoContact, task.RecipientID))
	}

	envelope, err := json.Marshal(webhookEnvelope{
		NotificationID: task.NotificationID.String(),
		RecipientID:    task.RecipientID,
		Attempt:        task.AttemptCount + 1,
		SentAt:         time.Now().UTC(),
		Payload:        content.Webhook.Payload,
	})
	if err != nil {
		return notification.Permanent(fmt.Sprintf("marshal webhook envelope: %v", err))
	}

	opts := []webhook.DeliverOption{
		webhook.WithTimeout(s.timeout),
		webhook.WithCircuitBreaker(s.circuit(contact.WebhookURL)),
	}
	if contact.WebhookSecret != "" {
		opts = append(opts, webhook.WithSignature(contact.WebhookSecret))
	}

	err = s.client.Deliver(ctx, contact.WebhookURL, envelope, opts...)
	switch {
	case err == nil:
		return notification.Success()
	case webhook.IsPermanent(err):
		return notification.Permanent(err.Error())
	default:
		// Open circuit, timeout, network error, 5xx: worth retrying later
		return notification.Transient(err.Error())
	}
}

func (s *Webhook) circuit(endpoint string) *webhook.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.circuits[endpoint]
	if !ok {
		cb = webhook.NewCircuitBreaker(0, 0, 0)
		s.circuits[endpoint] = cb
	}
	return cb
}
