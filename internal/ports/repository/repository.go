package repository

import (
	"context"
	"errors"

	"attendance.service/internal/core/model"
)

// Store infrastructure errors. ErrConcurrentModification is retryable: the
// losing side of a per-employee race gets it and, after a retry, observes the
// winner's effect. ErrStoreUnavailable is fatal for the single operation.
var (
	ErrConcurrentModification = errors.New("concurrent modification of employee state")
	ErrStoreUnavailable       = errors.New("interval store unavailable")
)

// IntervalStore is the persistence contract for TimeEntry and BreakInterval
// records. Every mutating operation runs inside Atomic, which serializes
// callers per (tenant, employee): two operations for different employees may
// proceed in parallel, two for the same employee never interleave their
// read-check-write sequence.
type IntervalStore interface {
	// Atomic runs fn as a single transaction serialized on (tenantID, employeeID).
	// Writes staged through the Tx become visible only if fn returns nil.
	Atomic(ctx context.Context, tenantID, employeeID string, fn func(ctx context.Context, tx Tx) error) error

	ActiveEntry(ctx context.Context, tenantID, employeeID string) (*model.TimeEntry, error)
	GetEntry(ctx context.Context, tenantID, entryID string) (*model.TimeEntry, error)
	ListPendingReview(ctx context.Context, tenantID string) ([]*model.TimeEntry, error)
}

// Tx is the read-modify-write surface available inside Atomic.
type Tx interface {
	ActiveEntry(ctx context.Context, tenantID, employeeID string) (*model.TimeEntry, error)
	GetEntry(ctx context.Context, tenantID, entryID string) (*model.TimeEntry, error)
	InsertEntry(ctx context.Context, entry *model.TimeEntry) error
	UpdateEntry(ctx context.Context, entry *model.TimeEntry) error

	OpenBreak(ctx context.Context, entryID string) (*model.BreakInterval, error)
	ClosedBreaks(ctx context.Context, entryID string) ([]*model.BreakInterval, error)
	MaxBreakNumber(ctx context.Context, entryID string) (int, error)
	InsertBreak(ctx context.Context, b *model.BreakInterval) error
	UpdateBreak(ctx context.Context, b *model.BreakInterval) error
}
