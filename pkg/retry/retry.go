// Package retry runs an operation a fixed number of times with a fixed delay
// between attempts. There is no backoff growth and no open-ended looping.
package retry

import (
	"context"
	"errors"
	"time"
)

type Policy struct {
	Attempts int
	Delay    time.Duration
}

type stopError struct{ err error }

func (e stopError) Error() string { return e.err.Error() }
func (e stopError) Unwrap() error { return e.err }

// Stop marks err as permanent so Do returns it immediately.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return stopError{err: err}
}

// Do calls fn until it succeeds, returns a Stop error, the attempts are used
// up, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var stop stopError
		if errors.As(err, &stop) {
			return stop.err
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
