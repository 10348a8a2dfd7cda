package store

import (
	"context"
	"errors"
	"time"

	"recycle-pickup-api-server/internal/lifecycle"
)

// Classify maps a store error to a lifecycle kind under op. Errors that
// already carry a kind pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if lifecycle.KindOf(err) != lifecycle.KindUnknown {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return lifecycle.Wrap(lifecycle.NotFound, op, err)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicate):
		return lifecycle.Wrap(lifecycle.Conflict, op, err)
	case IsUnavailable(err):
		return lifecycle.Wrap(lifecycle.PersistenceTimeout, op, err)
	}
	return lifecycle.Wrap(lifecycle.KindUnknown, op, err)
}

// Bounded runs fn with ctx limited to timeout, when positive, and classifies
// its error.
func Bounded(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return Classify(op, fn(ctx))
}
