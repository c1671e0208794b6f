package notification

import "errors"

var (
	// ErrValidation is returned when a send request is rejected before any
	// task is created.
	ErrValidation = errors.New("invalid notification request")

	// ErrNoChannels is returned when the channel set is empty.
	ErrNoChannels = errors.New("notification requires at least one channel")

	// ErrUnknownChannel is returned for a channel outside the supported set.
	ErrUnknownChannel = errors.New("unknown delivery channel")

	// ErrInvalidAudience is returned for an audience spec that names no
	// resolvable recipients variant.
	ErrInvalidAudience = errors.New("invalid audience specification")

	// ErrNotFound is returned when a notification or task does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrTaskNotFound is returned when a delivery task does not exist.
	ErrTaskNotFound = errors.New("delivery task not found")

	// ErrNotCancellable is returned when cancelling a notification that has
	// already completed.
	ErrNotCancellable = errors.New("notification is not cancellable")

	// ErrQueueUnavailable is returned when the storage backend rejects an
	// enqueue; no partial tasks are left behind and the caller should retry
	// the whole create call.
	ErrQueueUnavailable = errors.New("dispatch queue unavailable")
)
