package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campushub/notify/pkg/notification"
)

// SMSGateway sends a single text message. Implementations wrap provider
// rejections (invalid number, blocked recipient) with ErrPermanent.
type SMSGateway interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// SMS delivers sms tasks through an SMSGateway.
type SMS struct {
	gateway   SMSGateway
	directory Directory
}

// NewSMS creates the SMS channel sender.
func NewSMS(gateway SMSGateway, directory Directory) *SMS {
	return &SMS{gateway: gateway, directory: directory}
}

func (s *SMS) Send(ctx context.Context, task *notification.DeliveryTask) notification.Outcome {
	content, err := decodeFor(task, notification.ChannelSMS)
	if err != nil {
		return classify(err)
	}

	contact, err := s.directory.Contact(ctx, task.RecipientID)
	if err != nil {
		return classify(err)
	}
	if contact.Phone == "" {
		return classify(fmt.Errorf("%w: recipient %s has no phone number", ErrNoContact, task.RecipientID))
	}

	return classify(s.gateway.SendSMS(ctx, contact.Phone, content.SMS.Text))
}

// DevSMSGateway logs messages instead of sending them. For development.
type DevSMSGateway struct {
	logger *slog.Logger
}

// NewDevSMSGateway creates a logging SMS gateway.
func NewDevSMSGateway(logger *slog.Logger) *DevSMSGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevSMSGateway{logger: logger}
}

func (g *DevSMSGateway) SendSMS(ctx context.Context, phone, text string) error {
	g.logger.InfoContext(ctx, "dev sms gateway: message suppressed",
		slog.String("phone", phone),
		slog.Int("length", len(text)),
	)
	return nil
}
