package retry

import (
	"context"
	"errors"
	"time"
)

// Permanent wraps an error to tell Do that further attempts are pointless.
type Permanent struct {
	Err error
}

func (p Permanent) Error() string { return p.Err.Error() }

func (p Permanent) Unwrap() error { return p.Err }

// Stop marks err as permanent so Do returns it without retrying.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return Permanent{Err: err}
}

// Do runs op up to maxAttempts times, sleeping baseDelay, 2*baseDelay,
// 4*baseDelay, ... between attempts. It returns the last error when all
// attempts fail, unwrapping a Permanent marker if present.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		var perm Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}
