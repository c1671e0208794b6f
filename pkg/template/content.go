package template

import (
	"encoding/json"
	"fmt"

	"github.com/campushub/notify/pkg/notification"
)

// SMSMaxLen is the hard cap for SMS text, including the ellipsis appended on
// truncation.
const SMSMaxLen = 160

// EmailContent is the email channel shape.
type EmailContent struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// PushContent is the push channel shape.
type PushContent struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// SMSContent is the SMS channel shape; Text is already truncated to
// SMSMaxLen.
type SMSContent struct {
	Text string `json:"text"`
}

// WebhookContent is the webhook channel shape: an opaque JSON document
// POSTed to the subscriber endpoint.
type WebhookContent struct {
	Payload json.RawMessage `json:"payload"`
}

// InAppContent is the in-app channel shape.
type InAppContent struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Content is a tagged variant over the per-channel shapes. Exactly one field
// matching Channel is populated.
type Content struct {
	Channel notification.Channel `json:"channel"`
	Email   *EmailContent        `json:"email,omitempty"`
	Push    *PushContent         `json:"push,omitempty"`
	SMS     *SMSContent          `json:"sms,omitempty"`
	Webhook *WebhookContent      `json:"webhook,omitempty"`
	InApp   *InAppContent        `json:"in_app,omitempty"`
}

// Encode serializes the content for storage on a delivery task.
func (c Content) Encode() (json.RawMessage, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s content: %w", c.Channel, err)
	}
	return b, nil
}

// Decode deserializes content previously stored with Encode.
func Decode(raw json.RawMessage) (Content, error) {
	var c Content
	if err := json.Unmarshal(raw, &c); err != nil {
		return Content{}, fmt.Errorf("decode rendered content: %w", err)
	}
	return c, nil
}

// TruncateSMS enforces the SMS hard cap deterministically: text longer than
// SMSMaxLen runes is cut to SMSMaxLen-1 runes with an ellipsis appended.
func TruncateSMS(text string) string {
	runes := []rune(text)
	if len(runes) <= SMSMaxLen {
		return text
	}
	return string(runes[:SMSMaxLen-1]) + "…"
}
