package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type postmarkSender struct {
	client *postmark.Client
	cfg    Config
}

// NewPostmarkClient creates a Postmark-backed sender. The server token is
// required; the account token is only needed for account-level API calls and
// may be empty.
func NewPostmarkClient(cfg Config) (EmailSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &postmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}, nil
}

// SendEmail delivers through Postmark's transactional API. Replies go to the
// support address. Open tracking is limited to HTML so plain-text messages
// stay untouched.
func (s *postmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.cfg.SenderEmail,
		ReplyTo:    s.cfg.SupportEmail,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TextBody:   params.BodyText,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: postmark %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}
