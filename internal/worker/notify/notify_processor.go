package notify

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/worker/dashboard"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// NotifyProcessor handles jobs from the events queue, pushing change events to
// the dashboard webhook. It uses a circuit breaker to avoid hammering the
// dashboard if it's having issues. Delivery is at-least-once; dashboards
// tolerate duplicates.
type NotifyProcessor struct {
	dashboard dashboard.Client
	cb        *gobreaker.CircuitBreaker

	mu         sync.Mutex
	retryCount map[string]int
}

// NewProcessor creates a new processor for the events queue. It sets up a
// circuit breaker to protect the dashboard webhook from being overwhelmed.
func NewProcessor(client dashboard.Client) *NotifyProcessor {
	settings := gobreaker.Settings{
		Name:        "Dashboard-Webhook",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is bigger then 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &NotifyProcessor{
		dashboard:  client,
		cb:         gobreaker.NewCircuitBreaker(settings),
		retryCount: make(map[string]int),
	}
}

// Process handles a single message from the events queue. It pushes the event
// through the circuit breaker and asks the worker to retry with exponential
// backoff on failure.
func (p *NotifyProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.ChangeEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal change event")
		return false, 0, err // Do not retry on malformed message
	}

	log.Ctx(ctx).Debug().
		Str("entity_type", event.EntityType).
		Str("entity_id", event.EntityID).
		Str("new_status", event.NewStatus).
		Msg("Pushing change event to dashboard")

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.dashboard.PushChange(ctx, event)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Ctx(ctx).Warn().Msg("Circuit Breaker is OPEN; skipping dashboard call")
		}
		delay := calculateBackoff(p.bumpRetry(event.EntityID))
		return true, delay, err
	}

	p.clearRetry(event.EntityID)
	return false, 0, nil
}

func (p *NotifyProcessor) bumpRetry(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retryCount[id]++
	return p.retryCount[id]
}

func (p *NotifyProcessor) clearRetry(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.retryCount, id)
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each retry.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 {
		return 3600 // max at 1 hour
	}
	return backoff
}
