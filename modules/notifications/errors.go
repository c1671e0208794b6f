package notifications

import (
	"errors"
	"net/http"

	"github.com/campushub/notify/handler"
	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/tracker"
)

// asHTTPError maps domain errors onto transport errors so clients get a
// meaningful status code instead of a blanket 500.
func asHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notification.ErrNotFound),
		errors.Is(err, notification.ErrTaskNotFound):
		return handler.ErrNotFound
	case errors.Is(err, notification.ErrValidation),
		errors.Is(err, notification.ErrNoChannels),
		errors.Is(err, notification.ErrUnknownChannel),
		errors.Is(err, notification.ErrInvalidAudience):
		return handler.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, notification.ErrNotCancellable):
		return handler.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, tracker.ErrNotFailed):
		return handler.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, notification.ErrQueueUnavailable):
		return handler.ErrServiceUnavailable
	default:
		return err
	}
}
