package sender

import (
	"context"

	"github.com/campushub/notify/pkg/inbox"
	"github.com/campushub/notify/pkg/notification"
)

// InApp delivers in_app tasks into the recipient's inbox. Redelivery of the
// same notification replaces the earlier message, so retries stay idempotent.
type InApp struct {
	box *inbox.Inbox
}

// NewInApp creates the in-app channel sender.
func NewInApp(box *inbox.Inbox) *InApp {
	return &InApp{box: box}
}

func (s *InApp) Send(ctx context.Context, task *notification.DeliveryTask) notification.Outcome {
	content, err := decodeFor(task, notification.ChannelInApp)
	if err != nil {
		return classify(err)
	}

	err = s.box.Put(ctx, inbox.Message{
		RecipientID:    task.RecipientID,
		NotificationID: task.NotificationID,
		Title:          content.InApp.Title,
		Body:           content.InApp.Message,
	})
	return classify(err)
}
