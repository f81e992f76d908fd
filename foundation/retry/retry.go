// Package retry runs operations against external systems until they
// succeed, waiting on an injectable clock between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrAttemptsExhausted is returned when MaxAttempts calls all failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy describes how long to wait between attempts.
type Policy struct {
	Interval    time.Duration // Wait after the first failure.
	Multiplier  float64       // Growth of the wait per failure, values <= 1 keep it fixed.
	MaxInterval time.Duration // Upper bound of the wait, zero is unbounded.
	Jitter      float64       // Fraction of the wait randomly added, 0 to 1.
	MaxAttempts int           // Zero retries forever.
}

// Default returns the fixed one second policy used against the settlement
// chain. It never gives up.
func Default() Policy {
	return Policy{
		Interval: time.Second,
	}
}

// Backoff returns the wait after the specified number of failed attempts.
func (p Policy) Backoff(failures int) time.Duration {
	wait := float64(p.Interval)
	if p.Multiplier > 1 {
		for i := 1; i < failures; i++ {
			wait *= p.Multiplier
			if p.MaxInterval > 0 && wait >= float64(p.MaxInterval) {
				break
			}
		}
	}

	if p.MaxInterval > 0 && wait > float64(p.MaxInterval) {
		wait = float64(p.MaxInterval)
	}

	if p.Jitter > 0 {
		wait += wait * p.Jitter * rand.Float64()
	}

	return time.Duration(wait)
}

// Notify is called after every failed attempt with the error, the attempt
// number starting at 1 and the wait before the next attempt.
type Notify func(err error, attempt int, wait time.Duration)

// =============================================================================

type permanentError struct {
	err error
}

func (pe *permanentError) Error() string { return pe.err.Error() }
func (pe *permanentError) Unwrap() error { return pe.err }

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// =============================================================================

// Do calls fn until it succeeds, returns a Permanent error, the context is
// cancelled or the policy runs out of attempts.
func Do(ctx context.Context, clock clockwork.Clock, p Policy, fn func(ctx context.Context) error, notify Notify) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := p.Backoff(attempt)
		if notify != nil {
			notify(err, attempt, wait)
		}

		select {
		case <-clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
