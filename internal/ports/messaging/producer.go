package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	sender         MessageSender
	eventsQueueURL string
	reviewQueueURL string
}

func NewProducer(sender MessageSender, eventsQueueURL, reviewQueueURL string) *Producer {
	return &Producer{
		sender:         sender,
		eventsQueueURL: eventsQueueURL,
		reviewQueueURL: reviewQueueURL,
	}
}

func NewSQSProducer(client SQSClient, eventsQueueURL, reviewQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, eventsQueueURL, reviewQueueURL)
}

func (p *Producer) PublishChange(ctx context.Context, event ChangeEvent) error {
	return p.publish(ctx, p.eventsQueueURL, event)
}

func (p *Producer) PublishReview(ctx context.Context, event ReviewEvent) error {
	return p.publish(ctx, p.reviewQueueURL, event)
}

func (p *Producer) publish(ctx context.Context, destination string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	// Enrich the current span with employee_id if available
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		var payload struct {
			EmployeeID string `json:"employeeId"`
		}
		if err := json.Unmarshal(b, &payload); err == nil && payload.EmployeeID != "" {
			span.SetAttributes(attribute.String("app.employeeId", payload.EmployeeID))
		}
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

var _ ChangeProducer = (*Producer)(nil)
