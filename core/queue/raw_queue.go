package queue

import (
	"context"
	"fmt"
)

// RawQueue passes every message, undecoded, to a single handler.
type RawQueue struct {
	*engine

	handler RawHandler
}

// NewRawQueue creates a raw queue bound to queueURL.
// The URL is validated here, not at poll time.
func NewRawQueue(svc Service, queueURL string, handler RawHandler, opts ...Option) (*RawQueue, error) {
	if handler == nil {
		return nil, ErrHandlerNil
	}

	e, err := newEngine(svc, queueURL, opts...)
	if err != nil {
		return nil, err
	}

	return &RawQueue{
		engine:  e,
		handler: handler,
	}, nil
}

// NewRawQueueFromConfig creates a RawQueue from configuration.
// Additional options override config values.
func NewRawQueueFromConfig(cfg Config, svc Service, queueURL string, handler RawHandler, opts ...Option) (*RawQueue, error) {
	return NewRawQueue(svc, queueURL, handler, append(cfg.Options(), opts...)...)
}

// AddMessage enqueues a message with the given body and attributes.
func (q *RawQueue) AddMessage(ctx context.Context, body string, attributes map[string]MessageAttribute) (SendResult, error) {
	res, err := q.svc.Send(ctx, q.url, body, attributes)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: send message: %w", ErrTransport, err)
	}
	return res, nil
}

// Consume polls the queue and passes every message to the handler.
// Stop semantics are the same as TaskQueue.Consume.
func (q *RawQueue) Consume(ctx context.Context, opts ...ConsumeOption) error {
	return q.consume(ctx, q.consumeMessage, opts...)
}

func (q *RawQueue) consumeMessage(ctx context.Context, msg Message) error {
	return q.dispatcher.run(ctx, msg, "message", func(ctx context.Context) error {
		return q.handler.HandleMessage(ctx, q.url, msg)
	})
}
