package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Constants for reconnect behavior
const (
	// DefaultInitialDelay is the wait before the first reconnect attempt.
	DefaultInitialDelay = 1 * time.Second

	// DefaultMaxDelay caps the doubling reconnect delay.
	DefaultMaxDelay = 30 * time.Second
)

// reconnectBackoff produces the delay sequence between reconnect attempts:
// the delay doubles after every failed attempt, capped at max, and resets to
// the initial value after a successful connection. Randomization is disabled
// so the sequence is exactly initial, 2*initial, 4*initial, ..., max.
type reconnectBackoff struct {
	policy *backoff.ExponentialBackOff
}

func newReconnectBackoff(initial, max time.Duration) *reconnectBackoff {
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	if max <= 0 {
		max = DefaultMaxDelay
	}
	if max < initial {
		max = initial
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initial
	policy.MaxInterval = max
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0 // reconnect forever
	policy.Reset()

	return &reconnectBackoff{policy: policy}
}

// Next returns the delay to wait before the next attempt and advances the
// sequence.
func (b *reconnectBackoff) Next() time.Duration {
	return b.policy.NextBackOff()
}

// Reset restarts the sequence at the initial delay.
func (b *reconnectBackoff) Reset() {
	b.policy.Reset()
}
