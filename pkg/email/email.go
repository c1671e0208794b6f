package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

var (
	ErrInvalidConfig     = errors.New("email: invalid config")
	ErrInvalidParams     = errors.New("email: invalid send params")
	ErrFailedToSendEmail = errors.New("email: failed to send")
)

// EmailSender sends a single transactional email. Implementations must treat
// ErrInvalidParams as non-retryable.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams carries one outbound message. At least one of BodyHTML and
// BodyText must be set.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html,omitempty"`
	BodyText string `json:"body_text,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the parameters before any provider call.
func (p SendEmailParams) Validate() error {
	if p.SendTo == "" {
		return fmt.Errorf("%w: recipient address is required", ErrInvalidParams)
	}
	if !validAddress(p.SendTo) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidParams, p.SendTo)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" && p.BodyText == "" {
		return fmt.Errorf("%w: message body is required", ErrInvalidParams)
	}
	return nil
}

// validAddress accepts bare addresses only, not "Name <addr>" forms.
func validAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Config holds the provider settings. The Postmark tokens stay optional so
// development environments can run on the dev sender alone.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}

// Validate checks that the configured sender identity is usable.
func (c Config) Validate() error {
	if !validAddress(c.SenderEmail) {
		return fmt.Errorf("%w: sender email %q is not a valid address", ErrInvalidConfig, c.SenderEmail)
	}
	if !validAddress(c.SupportEmail) {
		return fmt.Errorf("%w: support email %q is not a valid address", ErrInvalidConfig, c.SupportEmail)
	}
	return nil
}
