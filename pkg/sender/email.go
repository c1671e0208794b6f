package sender

import (
	"context"
	"errors"
	"fmt"

	"github.com/campushub/notify/pkg/email"
	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/template"
)

// Email delivers email tasks through an email.EmailSender.
type Email struct {
	mailer    email.EmailSender
	directory Directory
}

// NewEmail creates the email channel sender.
func NewEmail(mailer email.EmailSender, directory Directory) *Email {
	return &Email{mailer: mailer, directory: directory}
}

func (s *Email) Send(ctx context.Context, task *notification.DeliveryTask) notification.Outcome {
	content, err := decodeFor(task, notification.ChannelEmail)
	if err != nil {
		return classify(err)
	}

	contact, err := s.directory.Contact(ctx, task.RecipientID)
	if err != nil {
		return classify(err)
	}
	if contact.Email == "" {
		return classify(fmt.Errorf("%w: recipient %s has no email address", ErrNoContact, task.RecipientID))
	}

	err = s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   contact.Email,
		Subject:  content.Email.Subject,
		BodyHTML: content.Email.HTML,
		BodyText: content.Email.Text,
		Tag:      task.NotificationID.String(),
	})
	if err != nil && errors.Is(err, email.ErrInvalidParams) {
		// Bad address or empty body will not improve on retry
		return notification.Permanent(err.Error())
	}
	return classify(err)
}

// decodeFor decodes a task's rendered content and checks it carries the
// shape for the expected channel.
func decodeFor(task *notification.DeliveryTask, ch notification.Channel) (template.Content, error) {
	content, err := template.Decode(task.RenderedContent)
	if err != nil {
		return template.Content{}, fmt.Errorf("%w: %w", ErrMalformedContent, err)
	}
	if content.Channel != ch {
		return template.Content{}, fmt.Errorf("%w: content is for channel %s, task is %s", ErrMalformedContent, content.Channel, ch)
	}

	missing := false
	switch ch {
	case notification.ChannelEmail:
		missing = content.Email == nil
	case notification.ChannelPush:
		missing = content.Push == nil
	case notification.ChannelSMS:
		missing = content.SMS == nil
	case notification.ChannelWebhook:
		missing = content.Webhook == nil
	case notification.ChannelInApp:
		missing = content.InApp == nil
	}
	if missing {
		return template.Content{}, fmt.Errorf("%w: %s payload is empty", ErrMalformedContent, ch)
	}
	return content, nil
}
