package webhook

import "errors"

// Domain errors for webhook delivery, designed for error wrapping and
// classification. The queue decides whether to retry a task based on which
// of these the delivery error matches.
var (
	ErrDeliveryFailed       = errors.New("webhook delivery failed")
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
	ErrPermanentFailure     = errors.New("permanent webhook failure")
	ErrTemporaryFailure     = errors.New("temporary webhook failure")
	ErrCircuitOpen          = errors.New("webhook circuit breaker is open")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrInvalidURL           = errors.New("invalid webhook URL")
	ErrTimeout              = errors.New("webhook request timeout")
)

// IsPermanent checks if an error indicates the endpoint rejected the payload
// in a way that will not resolve with retries.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure)
}

// IsCircuitOpen checks if an error indicates the circuit breaker is open.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
