package audit

import "errors"

var (
	// ErrEventValidation is returned when an event is missing required fields.
	ErrEventValidation = errors.New("audit: invalid event")
	// ErrStorageNotAvailable is returned when the writer has been closed.
	ErrStorageNotAvailable = errors.New("audit: storage not available")
)
