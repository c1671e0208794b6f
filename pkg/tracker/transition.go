package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notify/pkg/notification"
)

var (
	// ErrInvalidTransition is returned when a status change violates the
	// task state machine.
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrNotFailed is returned when a manual retry targets a task that is
	// not in the failed_permanent state.
	ErrNotFailed = errors.New("task is not failed permanently")
)

// transitions is the task state machine. Absent entries are forbidden.
var transitions = map[notification.TaskStatus][]notification.TaskStatus{
	notification.TaskStatusPending:   {notification.TaskStatusInFlight, notification.TaskStatusCancelled},
	notification.TaskStatusInFlight:  {notification.TaskStatusSent, notification.TaskStatusRetryWait, notification.TaskStatusFailed, notification.TaskStatusCancelled},
	notification.TaskStatusRetryWait: {notification.TaskStatusPending, notification.TaskStatusCancelled},
	// Manual admin retry is the single escape hatch out of failed_permanent.
	notification.TaskStatusFailed: {notification.TaskStatusPending},
}

// CanTransition reports whether from → to is a legal task status change.
func CanTransition(from, to notification.TaskStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Claim moves a pending task in flight on behalf of a worker. The caller is
// responsible for making the claim atomic (storage lock or transaction).
func Claim(task *notification.DeliveryTask, workerID uuid.UUID, until time.Time) error {
	if !CanTransition(task.Status, notification.TaskStatusInFlight) {
		return fmt.Errorf("%w: %s to in_flight", ErrInvalidTransition, task.Status)
	}
	task.Status = notification.TaskStatusInFlight
	task.LockedBy = &workerID
	task.LockedUntil = &until
	return nil
}

// Apply is the single authoritative transition for a completed send attempt.
// It interprets the sender outcome, increments the attempt count, and either
// finishes the task or arms the retry backoff. attemptCount strictly
// increases and once it reaches maxAttempts the task is terminal.
func Apply(task *notification.DeliveryTask, outcome notification.Outcome, now time.Time, policy Backoff) error {
	if task.Status != notification.TaskStatusInFlight {
		return fmt.Errorf("%w: outcome for task in status %s", ErrInvalidTransition, task.Status)
	}

	task.AttemptCount++
	task.LockedBy = nil
	task.LockedUntil = nil

	switch outcome.Code {
	case notification.OutcomeSuccess:
		task.Status = notification.TaskStatusSent
		task.LastError = nil
		task.NextAttemptAt = nil
		completed := now
		task.CompletedAt = &completed
		return nil

	case notification.OutcomeTransient:
		reason := outcome.Reason
		task.LastError = &reason
		if task.AttemptCount >= task.MaxAttempts {
			return fail(task, now)
		}
		task.Status = notification.TaskStatusRetryWait
		next := now.Add(policy.Delay(task.AttemptCount))
		task.NextAttemptAt = &next
		return nil

	case notification.OutcomePermanent:
		reason := outcome.Reason
		task.LastError = &reason
		return fail(task, now)

	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidTransition, outcome.Code)
	}
}

func fail(task *notification.DeliveryTask, now time.Time) error {
	task.Status = notification.TaskStatusFailed
	task.NextAttemptAt = nil
	completed := now
	task.CompletedAt = &completed
	return nil
}

// Promote moves a retry_wait task whose backoff has elapsed back to pending.
// Returns false when the backoff has not elapsed yet.
func Promote(task *notification.DeliveryTask, now time.Time) bool {
	if task.Status != notification.TaskStatusRetryWait {
		return false
	}
	if task.NextAttemptAt != nil && task.NextAttemptAt.After(now) {
		return false
	}
	task.Status = notification.TaskStatusPending
	return true
}

// Cancel transitions a non-terminal task to cancelled. Cancelling an already
// terminal task is a no-op reported via the return value, never an error,
// so notification-level cancellation stays idempotent.
func Cancel(task *notification.DeliveryTask, now time.Time) bool {
	if task.Status.Terminal() {
		return false
	}
	task.Status = notification.TaskStatusCancelled
	task.LockedBy = nil
	task.LockedUntil = nil
	task.NextAttemptAt = nil
	completed := now
	task.CompletedAt = &completed
	return true
}

// ResetForRetry is the manual admin escape hatch: a permanently failed task
// is reset to pending with a zero attempt count and immediate eligibility.
func ResetForRetry(task *notification.DeliveryTask, now time.Time) error {
	if task.Status != notification.TaskStatusFailed {
		return fmt.Errorf("%w: status %s", ErrNotFailed, task.Status)
	}
	task.Status = notification.TaskStatusPending
	task.AttemptCount = 0
	task.LastError = nil
	task.NextAttemptAt = nil
	task.CompletedAt = nil
	task.EligibleAt = now
	return nil
}

// ForceFail handles malformed persisted state: rather than crash the worker
// pool, the task is transitioned straight to failed_permanent with the given
// reason.
func ForceFail(task *notification.DeliveryTask, reason string, now time.Time) {
	task.Status = notification.TaskStatusFailed
	task.LastError = &reason
	task.LockedBy = nil
	task.LockedUntil = nil
	task.NextAttemptAt = nil
	completed := now
	task.CompletedAt = &completed
}
