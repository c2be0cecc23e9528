package core

import (
	"context"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BreakService manages BreakInterval records nested under an ACTIVE TimeEntry.
// At most one break per entry is open at any instant; break #1 is the lunch
// break and is the only one gated by a minimum duration.
type BreakService struct {
	store    repository.IntervalStore
	producer messaging.ChangeProducer
	now      func() time.Time
}

func NewBreakService(store repository.IntervalStore, producer messaging.ChangeProducer) *BreakService {
	return &BreakService{
		store:    store,
		producer: producer,
		now:      time.Now,
	}
}

// StartBreak opens a new break under the employee's ACTIVE entry. Break
// numbers are assigned sequentially as max(existing)+1; #1 becomes the lunch
// break. Fails with ErrNotClockedIn without an active entry and with
// ErrBreakAlreadyOpen when a break is already in progress.
func (s *BreakService) StartBreak(ctx context.Context, tenantID, employeeID, evidenceRef string) (*model.BreakInterval, error) {
	if tenantID == "" || employeeID == "" {
		return nil, ErrInvalidTenantOrEmployee
	}

	var brk *model.BreakInterval
	err := withRetry(ctx, s.store, tenantID, employeeID, func(ctx context.Context, tx repository.Tx) error {
		entry, err := tx.ActiveEntry(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotClockedIn
		}

		open, err := tx.OpenBreak(ctx, entry.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrBreakAlreadyOpen
		}

		maxNumber, err := tx.MaxBreakNumber(ctx, entry.ID)
		if err != nil {
			return err
		}

		number := maxNumber + 1
		breakType := model.BreakTypeRegular
		if number == 1 {
			breakType = model.BreakTypeLunch
		}

		brk = &model.BreakInterval{
			ID:          uuid.NewString(),
			TimeEntryID: entry.ID,
			TenantID:    tenantID,
			EmployeeID:  employeeID,
			BreakNumber: number,
			BreakStart:  s.now().UTC(),
			BreakType:   breakType,
			IsPaid:      false,
		}
		if evidenceRef != "" {
			brk.EvidenceStart = &evidenceRef
		}
		return tx.InsertBreak(ctx, brk)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("break_id", brk.ID).
		Int("break_number", brk.BreakNumber).
		Str("employee_id", employeeID).
		Msg("Break started")
	publishBreakChange(ctx, s.producer, brk, s.now().UTC())
	return brk, nil
}

// EndBreak closes the employee's open break. Ending the lunch break (#1)
// before the entry's minimum duration fails with BreakTooShortError and makes
// no state change, leaving the break open for a later retry; breaks #2+ may be
// closed at any elapsed duration, including immediately. On success the owning
// entry's derived hour fields are recomputed in the same transaction, so the
// running total always reflects closed breaks.
func (s *BreakService) EndBreak(ctx context.Context, tenantID, employeeID, evidenceRef string) (*model.BreakInterval, error) {
	if tenantID == "" || employeeID == "" {
		return nil, ErrInvalidTenantOrEmployee
	}

	var brk *model.BreakInterval
	err := withRetry(ctx, s.store, tenantID, employeeID, func(ctx context.Context, tx repository.Tx) error {
		entry, err := tx.ActiveEntry(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNoOpenBreak
		}

		brk, err = tx.OpenBreak(ctx, entry.ID)
		if err != nil {
			return err
		}
		if brk == nil {
			return ErrNoOpenBreak
		}

		now := s.now().UTC()
		elapsed := now.Sub(brk.BreakStart)

		if brk.BreakNumber == 1 {
			minimum := time.Duration(entry.MinimumFirstBreakMinutes) * time.Minute
			if elapsed < minimum {
				return &BreakTooShortError{Remaining: minimum - elapsed}
			}
		}

		closed, err := tx.ClosedBreaks(ctx, entry.ID)
		if err != nil {
			return err
		}

		brk.Close(now)
		if evidenceRef != "" {
			brk.EvidenceEnd = &evidenceRef
		}
		if err := tx.UpdateBreak(ctx, brk); err != nil {
			return err
		}

		// The entry is still active, so the running totals use "now" as a
		// provisional clock-out. They are finalized on the real clock-out.
		closed = append(closed, brk)
		hours := ComputeHours(entry.ClockInTime, now, closed, entry.OvertimeThresholdHours)
		entry.TotalHours = hours.Total
		entry.RegularHours = hours.Regular
		entry.OvertimeHours = hours.Overtime
		return tx.UpdateEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("break_id", brk.ID).
		Int("break_number", brk.BreakNumber).
		Int("duration_minutes", *brk.DurationMinutes).
		Str("employee_id", employeeID).
		Msg("Break ended")
	publishBreakChange(ctx, s.producer, brk, s.now().UTC())
	return brk, nil
}
