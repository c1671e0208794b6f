package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/campushub/notify/pkg/notification"
)

var (
	// ErrTemplateNotFound is returned when a referenced template id does not
	// exist in the store.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMissingVariable is returned when a template placeholder has no
	// value. Only the channel being rendered is affected.
	ErrMissingVariable = errors.New("missing template variable")

	// ErrEmptyContent is returned when neither a template id nor raw content
	// is provided.
	ErrEmptyContent = errors.New("notification has no content")
)

// Template is a stored, reusable message definition. Placeholders use
// {{name}} syntax in both subject and body.
type Template struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Store provides read access to stored templates.
type Store interface {
	GetTemplate(ctx context.Context, id string) (*Template, error)
}

// StaticStore is an in-memory Store for tests and local development.
type StaticStore map[string]Template

// GetTemplate implements Store.
func (s StaticStore) GetTemplate(_ context.Context, id string) (*Template, error) {
	t, ok := s[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return &t, nil
}

// Source is the rendering input: either TemplateID referencing a stored
// template, or raw Title/Body. Variables fill {{name}} placeholders and ride
// along as the push/webhook data payload.
type Source struct {
	TemplateID string
	Title      string
	Body       string
	Variables  map[string]string
}

// Resolver renders per-channel content. It is a pure function over its
// inputs; the only I/O is the template store lookup.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver. A nil store is allowed as long as every
// render uses raw content.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Render produces the content for one channel. A failure affects only that
// channel; callers render each channel independently.
func (r *Resolver) Render(ctx context.Context, src Source, ch notification.Channel) (Content, error) {
	subject, body, err := r.resolveText(ctx, src)
	if err != nil {
		return Content{}, err
	}

	subject, err = interpolate(subject, src.Variables)
	if err != nil {
		return Content{}, fmt.Errorf("render %s subject: %w", ch, err)
	}
	body, err = interpolate(body, src.Variables)
	if err != nil {
		return Content{}, fmt.Errorf("render %s body: %w", ch, err)
	}

	switch ch {
	case notification.ChannelEmail:
		return Content{Channel: ch, Email: &EmailContent{
			Subject: subject,
			HTML:    renderHTML(subject, body),
			Text:    body,
		}}, nil
	case notification.ChannelPush:
		return Content{Channel: ch, Push: &PushContent{
			Title: subject,
			Body:  body,
			Data:  src.Variables,
		}}, nil
	case notification.ChannelSMS:
		text := body
		if text == "" {
			text = subject
		}
		return Content{Channel: ch, SMS: &SMSContent{Text: TruncateSMS(text)}}, nil
	case notification.ChannelWebhook:
		payload, err := json.Marshal(map[string]any{
			"title":   subject,
			"message": body,
			"data":    src.Variables,
		})
		if err != nil {
			return Content{}, fmt.Errorf("render webhook payload: %w", err)
		}
		return Content{Channel: ch, Webhook: &WebhookContent{Payload: payload}}, nil
	case notification.ChannelInApp:
		return Content{Channel: ch, InApp: &InAppContent{Title: subject, Message: body}}, nil
	default:
		return Content{}, fmt.Errorf("%w: %q", notification.ErrUnknownChannel, ch)
	}
}

func (r *Resolver) resolveText(ctx context.Context, src Source) (subject, body string, err error) {
	if src.TemplateID != "" {
		if r.store == nil {
			return "", "", fmt.Errorf("resolve template %q: %w", src.TemplateID, ErrTemplateNotFound)
		}
		t, err := r.store.GetTemplate(ctx, src.TemplateID)
		if err != nil {
			return "", "", fmt.Errorf("resolve template %q: %w", src.TemplateID, err)
		}
		return t.Subject, t.Body, nil
	}
	if src.Title == "" && src.Body == "" {
		return "", "", ErrEmptyContent
	}
	return src.Title, src.Body, nil
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// interpolate substitutes {{name}} placeholders. Every placeholder must have
// a value: rendering is all-or-nothing per channel rather than leaving raw
// markers in delivered content.
func interpolate(text string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(missing, ", "))
	}
	return out, nil
}

// renderHTML wraps the plain-text body in a minimal HTML document for the
// email channel. Line breaks become paragraphs; everything is escaped.
func renderHTML(subject, body string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(subject))
	b.WriteString("</h2>")
	for _, p := range strings.Split(body, "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
