package queue

import "context"

// Service is the queue transport consumed by TaskQueue and RawQueue.
// Implementations must be safe for concurrent use: the consumer calls Delete and
// ChangeVisibility from several workers at once.
//
// integration/sqs provides an Amazon SQS implementation, integration/database/redis
// a Redis one, and MemoryService an in-process one for tests and local development.
type Service interface {
	// Receive returns up to params.MaxMessages messages, waiting up to
	// params.WaitSeconds for at least one to become available.
	Receive(ctx context.Context, queueURL string, params ReceiveParams) ([]Message, error)

	// Delete removes a received message so it is never redelivered.
	Delete(ctx context.Context, queueURL, receiptHandle string) error

	// ChangeVisibility hides a received message for timeoutSeconds, after which
	// it becomes visible again for redelivery.
	ChangeVisibility(ctx context.Context, queueURL, receiptHandle string, timeoutSeconds int) error

	// Send enqueues a new message.
	Send(ctx context.Context, queueURL, body string, attributes map[string]MessageAttribute) (SendResult, error)
}
