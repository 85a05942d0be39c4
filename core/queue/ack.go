package queue

import (
	"context"
	"fmt"
)

// acker acknowledges and negatively acknowledges received messages.
// Service failures are wrapped with ErrTransport and returned, never retried here:
// the visibility timeout eventually re-exposes the message anyway.
type acker struct {
	svc      Service
	queueURL string
	defaults Bounds
	stats    *counters
}

// ack deletes the message so it is not redelivered.
func (a *acker) ack(ctx context.Context, msg Message) error {
	if err := a.svc.Delete(ctx, a.queueURL, msg.ReceiptHandle); err != nil {
		return fmt.Errorf("%w: delete message %s: %w", ErrTransport, msg.ID, err)
	}
	a.stats.acked.Add(1)
	return nil
}

// nack hides the message for the computed backoff so it is redelivered later.
// A nil override, or zero fields of it, fall back to the queue defaults.
func (a *acker) nack(ctx context.Context, msg Message, override *Bounds) error {
	timeout := a.backoff(msg, override)
	if err := a.svc.ChangeVisibility(ctx, a.queueURL, msg.ReceiptHandle, timeout); err != nil {
		return fmt.Errorf("%w: change visibility of message %s: %w", ErrTransport, msg.ID, err)
	}
	a.stats.nacked.Add(1)
	return nil
}

// backoff returns the visibility timeout nack would use for msg.
func (a *acker) backoff(msg Message, override *Bounds) int {
	bounds := a.defaults
	if override != nil {
		bounds = override.withDefaults(a.defaults)
	}
	return ComputeDelay(msg.RetryCount(), bounds.MinSeconds, bounds.MaxSeconds)
}
