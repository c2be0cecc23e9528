package core

import (
	"context"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"github.com/rs/zerolog/log"
)

// VerificationService drives the supervisor approve/reject step for entries
// flagged as requiring manual verification. APPROVED and REJECTED are
// terminal; rejected entries are retained for audit, never deleted here.
type VerificationService struct {
	store    repository.IntervalStore
	producer messaging.ChangeProducer
	now      func() time.Time
}

func NewVerificationService(store repository.IntervalStore, producer messaging.ChangeProducer) *VerificationService {
	return &VerificationService{
		store:    store,
		producer: producer,
		now:      time.Now,
	}
}

// Approve moves a PENDING_REVIEW entry to APPROVED and records the supervisor.
func (s *VerificationService) Approve(ctx context.Context, tenantID, entryID, supervisorID string) (*model.TimeEntry, error) {
	return s.verify(ctx, tenantID, entryID, supervisorID, model.StatusApproved)
}

// Reject moves a PENDING_REVIEW entry to REJECTED and records the supervisor.
func (s *VerificationService) Reject(ctx context.Context, tenantID, entryID, supervisorID string) (*model.TimeEntry, error) {
	return s.verify(ctx, tenantID, entryID, supervisorID, model.StatusRejected)
}

// ListPendingReview returns every entry awaiting verification for a tenant.
func (s *VerificationService) ListPendingReview(ctx context.Context, tenantID string) ([]*model.TimeEntry, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenantOrEmployee
	}
	return s.store.ListPendingReview(ctx, tenantID)
}

func (s *VerificationService) verify(ctx context.Context, tenantID, entryID, supervisorID string, target model.EntryStatus) (*model.TimeEntry, error) {
	if tenantID == "" || entryID == "" || supervisorID == "" {
		return nil, ErrInvalidTenantOrEmployee
	}

	// The entry is looked up first to learn its employee key; the decision
	// itself re-reads and re-checks under the same per-employee serialization
	// as every other mutation.
	entry, err := s.store.GetEntry(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}

	err = withRetry(ctx, s.store, tenantID, entry.EmployeeID, func(ctx context.Context, tx repository.Tx) error {
		entry, err = tx.GetEntry(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrEntryNotFound
		}
		if entry.Status != model.StatusPendingReview {
			return ErrNotPendingReview
		}

		now := s.now().UTC()
		entry.Status = target
		entry.VerifiedBy = &supervisorID
		entry.VerifiedAt = &now
		return tx.UpdateEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("entry_id", entry.ID).
		Str("supervisor_id", supervisorID).
		Str("status", string(entry.Status)).
		Msg("Time entry verified")
	publishEntryChange(ctx, s.producer, entry, s.now().UTC())
	return entry, nil
}
