// Package retry calls an operation until it succeeds, fails permanently or
// runs out of attempts, sleeping an exponential backoff in between.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Backoff describes how often an operation is tried and how long to wait
// after each failure. The wait doubles from Base up to Max.
type Backoff struct {
	// Attempts is the total number of calls; values below 1 mean one call
	Attempts int
	Base     time.Duration
	Max      time.Duration
	// Jitter randomizes each wait by up to ±Jitter of its length, 0 to 1
	Jitter float64
}

// PublishBackoff is used for best-effort broker publishing:
// four calls, waiting about 200ms, 400ms and 800ms
func PublishBackoff() Backoff {
	return Backoff{
		Attempts: 4,
		Base:     200 * time.Millisecond,
		Max:      5 * time.Second,
		Jitter:   0.1,
	}
}

// StartupBackoff is used while a dependency is coming up at boot: retries
// calls after the first, waiting from base up to 4x base
func StartupBackoff(retries int, base time.Duration) Backoff {
	return Backoff{
		Attempts: retries + 1,
		Base:     base,
		Max:      4 * base,
	}
}

// Wait returns the pause after the nth failed call, counting from 1
func (b Backoff) Wait(n int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	wait := b.Base
	for i := 1; i < n && (b.Max <= 0 || wait < b.Max); i++ {
		wait *= 2
	}
	if b.Jitter > 0 {
		j := b.Jitter
		if j > 1 {
			j = 1
		}
		wait += time.Duration((rand.Float64()*2 - 1) * j * float64(wait))
	}
	if b.Max > 0 && wait > b.Max {
		wait = b.Max
	}
	return wait
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so Do returns it without another attempt
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// OnRetry is told about each failed call that will be retried
type OnRetry func(attempt int, err error, wait time.Duration)

// Do calls op until it returns nil, returns a Permanent error or b.Attempts
// calls have failed. It reports how many calls were made and the last
// error, unwrapped from Permanent. If ctx ends first, the error wraps
// ctx.Err() together with the last failure.
func Do(ctx context.Context, b Backoff, op func(ctx context.Context) error, onRetry OnRetry) (int, error) {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return n - 1, errors.Join(err, last)
		}

		last = op(ctx)
		if last == nil {
			return n, nil
		}
		var perm *permanentError
		if errors.As(last, &perm) {
			return n, perm.err
		}
		if n == attempts {
			return n, last
		}

		wait := b.Wait(n)
		if onRetry != nil {
			onRetry(n, last, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, errors.Join(ctx.Err(), last)
		case <-timer.C:
		}
	}
}
