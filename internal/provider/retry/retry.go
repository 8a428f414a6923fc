package retry

import (
	"context"
	"time"
)

// Do runs fn up to attempts times, sleeping backoff between tries, but only
// when retryable says the failure is transient. Client errors (bad request,
// bad key) come back immediately.
func Do(ctx context.Context, attempts int, backoff time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 || !retryable(err) {
			return err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
