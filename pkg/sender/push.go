package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/template"
)

// PushGateway sends a push message to a single device token. Implementations
// wrap unregistered-token rejections with ErrPermanent.
type PushGateway interface {
	SendPush(ctx context.Context, token string, msg template.PushContent) error
}

// Push delivers push tasks through a PushGateway, fanning out to every
// registered device token for the recipient.
type Push struct {
	gateway   PushGateway
	directory Directory
}

// NewPush creates the push channel sender.
func NewPush(gateway PushGateway, directory Directory) *Push {
	return &Push{gateway: gateway, directory: directory}
}

// Send delivers to all device tokens. One successful device counts as
// success; tokens that fail permanently are skipped rather than failing the
// whole task, since stale tokens are routine.
func (s *Push) Send(ctx context.Context, task *notification.DeliveryTask) notification.Outcome {
	content, err := decodeFor(task, notification.ChannelPush)
	if err != nil {
		return classify(err)
	}

	contact, err := s.directory.Contact(ctx, task.RecipientID)
	if err != nil {
		return classify(err)
	}
	if len(contact.PushTokens) == 0 {
		return classify(fmt.Errorf("%w: recipient %s has no device tokens", ErrNoContact, task.RecipientID))
	}

	var (
		delivered bool
		lastErr   error
	)
	for _, token := range contact.PushTokens {
		if err := s.gateway.SendPush(ctx, token, *content.Push); err != nil {
			lastErr = err
			continue
		}
		delivered = true
	}

	if delivered {
		return notification.Success()
	}
	if errors.Is(lastErr, ErrPermanent) {
		return notification.Permanent(fmt.Sprintf("all %d device tokens rejected: %v", len(contact.PushTokens), lastErr))
	}
	return classify(lastErr)
}

// DevPushGateway logs push messages instead of sending them.
type DevPushGateway struct {
	logger *slog.Logger
}

// NewDevPushGateway creates a logging push gateway.
func NewDevPushGateway(logger *slog.Logger) *DevPushGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevPushGateway{logger: logger}
}

func (g *DevPushGateway) SendPush(ctx context.Context, token string, msg template.PushContent) error {
	g.logger.InfoContext(ctx, "dev push gateway: message suppressed",
		slog.String("token", token),
		slog.String("title", msg.Title),
	)
	return nil
}
