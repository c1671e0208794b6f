package tracker

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes retry delays for transiently failed deliveries.
// Exponential growth with jitter spreads retries and avoids a thundering
// herd against a recovering provider.
type Backoff struct {
	// Base is the delay before the first retry.
	Base time.Duration

	// Cap bounds the delay regardless of attempt count.
	Cap time.Duration

	// JitterFactor randomizes each delay by ±JitterFactor (0 disables
	// jitter, useful in tests).
	JitterFactor float64
}

// DefaultBackoff returns the production retry policy: 30s base doubling per
// attempt, capped at one hour, with ±20% jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:         30 * time.Second,
		Cap:          time.Hour,
		JitterFactor: 0.2,
	}
}

// DefaultMaxAttempts is the number of delivery attempts before a task fails
// permanently.
const DefaultMaxAttempts = 5

// Delay returns the wait before the next attempt, given the number of
// attempts already made. The result always lies within
// [base*2^n*(1-jitter), base*2^n*(1+jitter)] with both bounds capped at Cap.
func (b Backoff) Delay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}

	base := b.Base
	if base <= 0 {
		base = 30 * time.Second
	}
	cap := b.Cap
	if cap <= 0 {
		cap = time.Hour
	}

	d := float64(base) * math.Pow(2, float64(attempts))
	if d > float64(cap) {
		d = float64(cap)
	}

	if b.JitterFactor > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.JitterFactor
		if d > float64(cap) {
			d = float64(cap)
		}
	}

	return time.Duration(d)
}
