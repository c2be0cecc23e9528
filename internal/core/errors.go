package core

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors returned synchronously to the caller. None of them leaves
// partial state behind; a client may treat any failure as "nothing happened"
// and retry.
var (
	ErrAlreadyClockedIn = errors.New("employee already has an active time entry")
	ErrNotClockedIn     = errors.New("employee has no active time entry")
	ErrBreakAlreadyOpen = errors.New("time entry already has an open break")
	ErrNoOpenBreak      = errors.New("no open break for the active time entry")
	ErrNotPendingReview = errors.New("time entry is not pending review")
	ErrEntryNotFound    = errors.New("time entry not found")

	ErrInvalidTenantOrEmployee = errors.New("tenant and employee ids are required")
)

// BreakTooShortError is returned when the lunch break (#1) is ended before the
// minimum duration. The break stays open and the call is retryable.
type BreakTooShortError struct {
	Remaining time.Duration
}

func (e *BreakTooShortError) Error() string {
	return fmt.Sprintf("first break below minimum duration, %d seconds remaining", e.RemainingSeconds())
}

// RemainingSeconds is the wait until the break may be ended, rounded up.
func (e *BreakTooShortError) RemainingSeconds() int64 {
	return int64((e.Remaining + time.Second - 1) / time.Second)
}
