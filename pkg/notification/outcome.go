package notification

// OutcomeCode is the three-way result a channel sender reports for a send
// attempt. The engine never inspects channel-specific details beyond this.
type OutcomeCode string

const (
	OutcomeSuccess   OutcomeCode = "success"
	OutcomeTransient OutcomeCode = "transient_failure"
	OutcomePermanent OutcomeCode = "permanent_failure"
)

// Outcome is the result of a single delivery attempt.
type Outcome struct {
	Code   OutcomeCode
	Reason string
}

// Success reports a delivered send.
func Success() Outcome {
	return Outcome{Code: OutcomeSuccess}
}

// Transient reports a retryable failure (network error, timeout,
// provider 5xx).
func Transient(reason string) Outcome {
	return Outcome{Code: OutcomeTransient, Reason: reason}
}

// Permanent reports a terminal failure (invalid address, revoked token,
// provider 4xx). The task is not retried automatically.
func Permanent(reason string) Outcome {
	return Outcome{Code: OutcomePermanent, Reason: reason}
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool {
	return o.Code == OutcomeSuccess
}
