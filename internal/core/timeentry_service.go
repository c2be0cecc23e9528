package core

import (
	"context"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/policy"
	"attendance.service/internal/ports/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TimeEntryService manages the clock-in/clock-out lifecycle of TimeEntry
// records. At most one entry per (tenant, employee) is ACTIVE at any instant;
// the store serializes every mutation on that key.
type TimeEntryService struct {
	store    repository.IntervalStore
	policies policy.Directory
	producer messaging.ChangeProducer
	now      func() time.Time
}

// NewTimeEntryService wires the store, the policy directory and the change
// event producer into a new service instance.
func NewTimeEntryService(store repository.IntervalStore, policies policy.Directory, producer messaging.ChangeProducer) *TimeEntryService {
	return &TimeEntryService{
		store:    store,
		policies: policies,
		producer: producer,
		now:      time.Now,
	}
}

// ClockIn opens a new ACTIVE TimeEntry for the employee. Fails with
// ErrAlreadyClockedIn when one is already open. The employee's policy is
// resolved here and snapshotted onto the entry for the rest of its lifecycle.
func (s *TimeEntryService) ClockIn(ctx context.Context, tenantID, employeeID, evidenceRef string) (*model.TimeEntry, error) {
	if tenantID == "" || employeeID == "" {
		return nil, ErrInvalidTenantOrEmployee
	}

	pol := s.resolvePolicy(ctx, tenantID, employeeID)

	var entry *model.TimeEntry
	err := withRetry(ctx, s.store, tenantID, employeeID, func(ctx context.Context, tx repository.Tx) error {
		existing, err := tx.ActiveEntry(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyClockedIn
		}

		entry = &model.TimeEntry{
			ID:                       uuid.NewString(),
			TenantID:                 tenantID,
			EmployeeID:               employeeID,
			ClockInTime:              s.now().UTC(),
			Status:                   model.StatusActive,
			RequiresVerification:     pol.RequiresManualVerification,
			MinimumFirstBreakMinutes: pol.MinimumFirstBreakMinutes,
			OvertimeThresholdHours:   pol.OvertimeThresholdHours,
		}
		if evidenceRef != "" {
			entry.EvidenceIn = &evidenceRef
		}
		return tx.InsertEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("entry_id", entry.ID).Str("employee_id", employeeID).Msg("Employee clocked in")
	publishEntryChange(ctx, s.producer, entry, s.now().UTC())
	return entry, nil
}

// ClockOut closes the employee's ACTIVE entry as a single atomic unit: any
// dangling open break is auto-closed at the clock-out timestamp, the derived
// hour fields are finalized, and the entry moves to COMPLETED or, when flagged
// for manual verification, PENDING_REVIEW. Replaying ClockOut against an
// already closed entry fails with ErrNotClockedIn, so client retries are safe.
func (s *TimeEntryService) ClockOut(ctx context.Context, tenantID, employeeID, evidenceRef string) (*model.TimeEntry, error) {
	if tenantID == "" || employeeID == "" {
		return nil, ErrInvalidTenantOrEmployee
	}

	var entry *model.TimeEntry
	err := withRetry(ctx, s.store, tenantID, employeeID, func(ctx context.Context, tx repository.Tx) error {
		var err error
		entry, err = tx.ActiveEntry(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotClockedIn
		}

		now := s.now().UTC()

		closed, err := tx.ClosedBreaks(ctx, entry.ID)
		if err != nil {
			return err
		}

		open, err := tx.OpenBreak(ctx, entry.ID)
		if err != nil {
			return err
		}
		if open != nil {
			open.Close(now)
			if err := tx.UpdateBreak(ctx, open); err != nil {
				return err
			}
			closed = append(closed, open)
			log.Ctx(ctx).Warn().
				Str("entry_id", entry.ID).
				Str("break_id", open.ID).
				Int("break_number", open.BreakNumber).
				Msg("Auto-closed dangling break on clock-out")
		}

		entry.ClockOutTime = &now
		if evidenceRef != "" {
			entry.EvidenceOut = &evidenceRef
		}

		hours := ComputeHours(entry.ClockInTime, now, closed, entry.OvertimeThresholdHours)
		entry.TotalHours = hours.Total
		entry.RegularHours = hours.Regular
		entry.OvertimeHours = hours.Overtime

		if entry.RequiresVerification {
			entry.Status = model.StatusPendingReview
		} else {
			entry.Status = model.StatusCompleted
		}
		return tx.UpdateEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("entry_id", entry.ID).
		Str("employee_id", employeeID).
		Float64("total_hours", entry.TotalHours).
		Str("status", string(entry.Status)).
		Msg("Employee clocked out")

	at := s.now().UTC()
	publishEntryChange(ctx, s.producer, entry, at)
	if entry.Status == model.StatusPendingReview {
		publishReviewRequest(ctx, s.producer, entry, at)
	}
	return entry, nil
}

// GetActiveEntry returns the employee's ACTIVE entry, or nil when clocked out.
func (s *TimeEntryService) GetActiveEntry(ctx context.Context, tenantID, employeeID string) (*model.TimeEntry, error) {
	if tenantID == "" || employeeID == "" {
		return nil, ErrInvalidTenantOrEmployee
	}
	return s.store.ActiveEntry(ctx, tenantID, employeeID)
}

// resolvePolicy consults the directory; a punch is never blocked by a
// directory outage, so failures fall back to the defaults with a warning.
func (s *TimeEntryService) resolvePolicy(ctx context.Context, tenantID, employeeID string) model.Policy {
	pol, err := s.policies.Resolve(ctx, tenantID, employeeID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("employee_id", employeeID).
			Msg("Policy directory unavailable, using default policy")
		return model.DefaultPolicy()
	}
	return pol
}
