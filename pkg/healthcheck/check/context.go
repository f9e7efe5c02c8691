package check

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCheckTimeout is returned when a check exceeds its deadline.
	ErrCheckTimeout = errors.New("check execution timed out")

	// ErrCheckCanceled is returned when a check's context is canceled.
	ErrCheckCanceled = errors.New("check execution canceled")
)

// CheckContextError returns an error if the context is done, nil otherwise.
//
// Checks that loop over many nodes or databases call it between remote calls
// so a per-check deadline stops the loop early:
//
//	if err := check.CheckContextError(ctx); err != nil {
//	    return nil, err
//	}
func CheckContextError(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return contextError(ctx.Err())
	default:
		return nil
	}
}

// IsContextError reports whether err was caused by a deadline or cancellation.
func IsContextError(err error) bool {
	return errors.Is(err, ErrCheckTimeout) ||
		errors.Is(err, ErrCheckCanceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func contextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCheckTimeout
	case errors.Is(err, context.Canceled):
		return ErrCheckCanceled
	default:
		return fmt.Errorf("context error: %w", err)
	}
}
