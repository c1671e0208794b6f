package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrNoTaskToClaim is returned by ClaimBatch when no task is currently
	// visible. It is a normal condition, not a failure.
	ErrNoTaskToClaim = errors.New("no task available to claim")

	// ErrNoSenders is returned when a worker is started without any channel
	// sender registered.
	ErrNoSenders = errors.New("no channel senders registered")

	// ErrAlreadyStarted is returned when a worker is started twice.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrNotStarted is returned when stopping a worker that never started.
	ErrNotStarted = errors.New("worker not started")

	// ErrTaskNotInFlight is returned when resolving an outcome for a task
	// that is not currently in flight.
	ErrTaskNotInFlight = errors.New("task is not in flight")
)
