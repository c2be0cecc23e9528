package core

import (
	"context"
	"errors"
	"time"

	"attendance.service/internal/ports/repository"
	"github.com/sethvargo/go-retry"
)

// withRetry runs a store transaction serialized on (tenant, employee),
// retrying a lost race twice with backoff. After a retry the loser re-runs its
// read-check-write sequence and observes the winner's effect, so a lost
// StartBreak race resolves to ErrBreakAlreadyOpen rather than a duplicate.
func withRetry(ctx context.Context, store repository.IntervalStore, tenantID, employeeID string, fn func(ctx context.Context, tx repository.Tx) error) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := store.Atomic(ctx, tenantID, employeeID, fn)
		if errors.Is(err, repository.ErrConcurrentModification) {
			return retry.RetryableError(err)
		}
		return err
	})
}
