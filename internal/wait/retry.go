package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrRetriesExhausted is wrapped by Retry when every attempt came back not done.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy bounds a Retry loop.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Attempt is one try of a retried operation. It reports whether the awaited
// state was observed. Returning an error wrapped with Permanent stops the loop.
type Attempt func(ctx context.Context, attempt int) (done bool, err error)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

var errNotYet = errors.New("not yet")

// Retry runs fn up to policy.Attempts times with a constant delay between
// attempts. Transient errors are retried like a false result; the last one
// is included when the budget runs out.
func Retry(ctx context.Context, policy RetryPolicy, description string, fn Attempt) error {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}

	var (
		attempt int
		lastErr error
		stopErr error
	)
	op := func() error {
		attempt++
		done, err := fn(ctx, attempt)
		if err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				stopErr = perm.Err
				return err
			}
			lastErr = err
			return err
		}
		if !done {
			return errNotYet
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.Attempts-1)),
		ctx,
	)

	err := backoff.Retry(op, b)
	switch {
	case err == nil:
		return nil
	case stopErr != nil:
		return stopErr
	case ctx.Err() != nil:
		return ctx.Err()
	}

	if lastErr != nil {
		return fmt.Errorf("%s: %w after %d attempts (last error: %v)", description, ErrRetriesExhausted, attempt, lastErr)
	}
	return fmt.Errorf("%s: %w after %d attempts", description, ErrRetriesExhausted, attempt)
}
