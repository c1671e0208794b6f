package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DevSender writes each message to a JSON file instead of sending it, so
// local development never needs provider credentials. Files are named
// <timestamp>_<tag>.json and can be tailed or inspected by hand.
type DevSender struct {
	dir string
}

// NewDevSender creates a sender that captures messages under dir. The
// directory is created on first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir}
}

type capturedEmail struct {
	SentAt string `json:"sent_at"`
	SendEmailParams
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}

	now := time.Now()
	data, err := json.MarshalIndent(capturedEmail{
		SentAt:          now.Format(time.RFC3339),
		SendEmailParams: params,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}

	name := fmt.Sprintf("%s_%s.json", now.Format("20060102_150405.000"), fileSafe(params.Tag))
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}
	return nil
}

// fileSafe reduces s to a short lowercase token usable in a filename.
func fileSafe(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > 64 {
		out = out[:64]
	}
	if out == "" {
		out = "message"
	}
	return out
}
