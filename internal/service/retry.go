package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swapshelf/internal/repository"
)

type RetryOptions struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	return o
}

// runTx runs fn in a store transaction, retrying the whole unit on write
// conflicts with linear backoff. Exhausting the attempts yields
// ErrTransactionConflict.
func runTx(ctx context.Context, store repository.Store, opts RetryOptions, fn func(tx repository.Tx) error) error {
	opts = opts.withDefaults()
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := store.RunInTx(ctx, fn)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * opts.Backoff):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrTransactionConflict, opts.MaxAttempts, lastErr)
}
