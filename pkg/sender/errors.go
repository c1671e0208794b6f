package sender

import (
	"context"
	"errors"

	"github.com/campushub/notify/pkg/notification"
)

var (
	// ErrPermanent marks a gateway error that will not resolve with retries.
	// Gateway implementations wrap rejections with it so senders can
	// classify without knowing provider specifics.
	ErrPermanent = errors.New("sender: permanent failure")

	// ErrMalformedContent is returned when a task's rendered content cannot
	// be decoded for the channel being delivered.
	ErrMalformedContent = errors.New("sender: malformed rendered content")
)

// classify maps a send error to a delivery outcome. Nil means success,
// ErrPermanent and its kin mean no retry, anything else is transient.
func classify(err error) notification.Outcome {
	switch {
	case err == nil:
		return notification.Success()
	case errors.Is(err, ErrPermanent),
		errors.Is(err, ErrNoContact),
		errors.Is(err, ErrMalformedContent):
		return notification.Permanent(err.Error())
	case errors.Is(err, context.Canceled):
		return notification.Transient("send cancelled")
	default:
		return notification.Transient(err.Error())
	}
}
