package review

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// ReviewProcessor handles jobs from the review queue: every event is an entry
// that just entered PENDING_REVIEW and a supervisor needs to hear about it.
type ReviewProcessor struct {
	emailService core.EmailService
	store        repository.IntervalStore
	recipient    string

	mu         sync.Mutex
	retryCount map[string]int
}

// NewProcessor sets up a new processor for review notifications. It needs an
// email service to reach the supervisor and the store to skip entries that
// were already decided by the time the message is picked up.
func NewProcessor(emailService core.EmailService, store repository.IntervalStore, recipient string) *ReviewProcessor {
	return &ReviewProcessor{
		emailService: emailService,
		store:        store,
		recipient:    recipient,
		retryCount:   make(map[string]int),
	}
}

// Process is the main entry point for handling a message from the review queue.
// It emails the supervisor and will tell the worker to retry if something goes wrong.
func (p *ReviewProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.ReviewEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal review event")
		return false, 0, err // Do not retry on malformed message
	}

	entry, err := p.store.GetEntry(ctx, event.TenantID, event.TimeEntryID)
	if err != nil {
		// If we can't get the record, retry after a short delay.
		return true, 10, fmt.Errorf("failed to get entry from store for review processing: %w", err)
	}
	if entry == nil {
		log.Ctx(ctx).Error().Str("entry_id", event.TimeEntryID).Msg("Review event for unknown entry. Dropping.")
		return false, 0, nil
	}

	if entry.Status != model.StatusPendingReview {
		log.Ctx(ctx).Info().
			Str("entry_id", entry.ID).
			Str("status", string(entry.Status)).
			Msg("Entry already decided. Skipping supervisor notification.")
		return false, 0, nil
	}

	err = p.emailService.SendReviewRequest(ctx, p.recipient, entry.EmployeeID, entry.TotalHours)
	if err != nil {
		p.mu.Lock()
		p.retryCount[event.TimeEntryID]++
		count := p.retryCount[event.TimeEntryID]
		p.mu.Unlock()
		return true, calculateBackoff(count), err
	}

	p.mu.Lock()
	delete(p.retryCount, event.TimeEntryID)
	p.mu.Unlock()
	return false, 0, nil
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each retry to avoid overwhelming a struggling service.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 { // Cap at 1 hour
		return 3600
	}
	return backoff
}
