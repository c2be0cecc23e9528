package messaging

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// ChangeProducer is the output port the engine uses to announce state changes.
// Publishing is fire-and-forget from the engine's point of view: a failed
// publish is logged by the caller, never returned to the client.
type ChangeProducer interface {
	PublishChange(ctx context.Context, event ChangeEvent) error
	PublishReview(ctx context.Context, event ReviewEvent) error
}

// MessageSender defines the interface for sending raw messages to a messaging system.
type MessageSender interface {
	SendMessage(ctx context.Context, destination string, body []byte) error
}

// SQSClient defines the interface for the AWS SQS client.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}
