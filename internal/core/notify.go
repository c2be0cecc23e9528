package core

import (
	"context"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"github.com/rs/zerolog/log"
)

// Break interval statuses carried on change events.
const (
	breakStatusOpen   = "OPEN"
	breakStatusClosed = "CLOSED"
)

// Change notification is best-effort: a failed publish is logged and dropped,
// it never fails the mutation that already committed.

func publishEntryChange(ctx context.Context, p messaging.ChangeProducer, e *model.TimeEntry, at time.Time) {
	event := messaging.ChangeEvent{
		EntityType: messaging.EntityTimeEntry,
		EntityID:   e.ID,
		TenantID:   e.TenantID,
		EmployeeID: e.EmployeeID,
		NewStatus:  string(e.Status),
		OccurredAt: at,
	}
	if err := p.PublishChange(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("entry_id", e.ID).Msg("Failed to publish time entry change event")
	}
}

func publishBreakChange(ctx context.Context, p messaging.ChangeProducer, b *model.BreakInterval, at time.Time) {
	status := breakStatusOpen
	if !b.Open() {
		status = breakStatusClosed
	}

	event := messaging.ChangeEvent{
		EntityType: messaging.EntityBreakInterval,
		EntityID:   b.ID,
		TenantID:   b.TenantID,
		EmployeeID: b.EmployeeID,
		NewStatus:  status,
		OccurredAt: at,
	}
	if err := p.PublishChange(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("break_id", b.ID).Msg("Failed to publish break change event")
	}
}

func publishReviewRequest(ctx context.Context, p messaging.ChangeProducer, e *model.TimeEntry, at time.Time) {
	event := messaging.ReviewEvent{
		TimeEntryID: e.ID,
		TenantID:    e.TenantID,
		EmployeeID:  e.EmployeeID,
		TotalHours:  e.TotalHours,
		OccurredAt:  at,
	}
	if err := p.PublishReview(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("entry_id", e.ID).Msg("Failed to publish review request event")
	}
}
