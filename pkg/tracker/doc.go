// Package tracker owns the delivery task state machine and the retry policy.
//
// All task status mutations in the engine funnel through the single
// authoritative transition function Apply, which makes the lifecycle
// unit-testable independent of queue transport and storage:
//
//	pending → in_flight → {sent | retry_wait | failed_permanent | cancelled}
//	retry_wait → pending (once the backoff elapses)
//
// Terminal states (sent, failed_permanent, cancelled) never regress.
// Transient failures are retried with exponential backoff and jitter until
// MaxAttempts is reached, after which the task fails permanently.
package tracker
