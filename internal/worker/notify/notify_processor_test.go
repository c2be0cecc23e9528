package notify

import (
	"context"
	"errors"
	"testing"

	"attendance.service/internal/ports/messaging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	pushed []messaging.ChangeEvent
	err    error
}

func (f *fakeDashboard) PushChange(ctx context.Context, event messaging.ChangeEvent) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, event)
	return nil
}

func message(body string) types.Message {
	return types.Message{
		Body:      aws.String(body),
		MessageId: aws.String("msg-1"),
	}
}

func TestProcess_PushesEventToDashboard(t *testing.T) {
	dash := &fakeDashboard{}
	p := NewProcessor(dash)

	body := `{"entityType":"time_entry","entityId":"e1","tenantId":"acme","employeeId":"emp-1","newStatus":"COMPLETED","occurredAt":"2025-06-02T17:00:00Z"}`
	shouldRetry, delay, err := p.Process(context.Background(), message(body))

	require.NoError(t, err)
	assert.False(t, shouldRetry)
	assert.Equal(t, int32(0), delay)
	require.Len(t, dash.pushed, 1)
	assert.Equal(t, "e1", dash.pushed[0].EntityID)
	assert.Equal(t, "COMPLETED", dash.pushed[0].NewStatus)
}

func TestProcess_MalformedMessageIsNotRetried(t *testing.T) {
	p := NewProcessor(&fakeDashboard{})

	shouldRetry, _, err := p.Process(context.Background(), message("not-json"))

	assert.Error(t, err)
	assert.False(t, shouldRetry)
}

func TestProcess_WebhookFailureBacksOff(t *testing.T) {
	dash := &fakeDashboard{err: errors.New("dashboard down")}
	p := NewProcessor(dash)

	body := `{"entityType":"time_entry","entityId":"e1","newStatus":"ACTIVE","occurredAt":"2025-06-02T08:00:00Z"}`

	shouldRetry, first, err := p.Process(context.Background(), message(body))
	assert.Error(t, err)
	assert.True(t, shouldRetry)

	shouldRetry, second, err := p.Process(context.Background(), message(body))
	assert.Error(t, err)
	assert.True(t, shouldRetry)
	assert.Greater(t, second, first, "retry delay grows with each attempt")

	// Recovery clears the retry counter for the entity.
	dash.err = nil
	shouldRetry, _, err = p.Process(context.Background(), message(body))
	require.NoError(t, err)
	assert.False(t, shouldRetry)

	dash.err = errors.New("down again")
	_, delay, _ := p.Process(context.Background(), message(body))
	assert.Equal(t, first, delay)
}

func TestProcess_BackoffIsCapped(t *testing.T) {
	assert.Equal(t, int32(20), calculateBackoff(1))
	assert.Equal(t, int32(40), calculateBackoff(2))
	assert.Equal(t, int32(3600), calculateBackoff(12))
}
