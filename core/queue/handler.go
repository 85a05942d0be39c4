package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

type (
	// TaskContext describes the message a task handler is running for.
	TaskContext struct {
		QueueURL string
		TaskName string
		Message  Message
	}

	// TaskHandler processes decoded task messages routed by task name.
	//
	// The returned error decides the fate of the message:
	//   - nil acknowledges (deletes) it
	//   - ErrNoRetry (or an error wrapping it) acknowledges it without retrying
	//   - a *RetryError (see Retry) schedules redelivery with custom backoff bounds
	//   - any other error schedules redelivery with the queue default bounds
	TaskHandler interface {
		HandleTask(ctx context.Context, tc TaskContext, kwargs map[string]any) error
	}

	// TaskHandlerFunc adapts a function to TaskHandler.
	TaskHandlerFunc func(ctx context.Context, tc TaskContext, kwargs map[string]any) error

	// RawHandler processes undecoded messages of a RawQueue.
	// Error semantics are the same as for TaskHandler.
	RawHandler interface {
		HandleMessage(ctx context.Context, queueURL string, msg Message) error
	}

	// RawHandlerFunc adapts a function to RawHandler.
	RawHandlerFunc func(ctx context.Context, queueURL string, msg Message) error
)

func (f TaskHandlerFunc) HandleTask(ctx context.Context, tc TaskContext, kwargs map[string]any) error {
	return f(ctx, tc, kwargs)
}

func (f RawHandlerFunc) HandleMessage(ctx context.Context, queueURL string, msg Message) error {
	return f(ctx, queueURL, msg)
}

// NewTaskHandler creates a handler that binds kwargs to a struct of type T
// through its JSON tags. A kwargs set that does not fit T is a handler failure
// and the message is retried with the default bounds.
func NewTaskHandler[T any](handler func(ctx context.Context, tc TaskContext, args T) error) TaskHandler {
	return &typedTaskHandler[T]{handler: handler}
}

type typedTaskHandler[T any] struct {
	handler func(ctx context.Context, tc TaskContext, args T) error
}

func (h *typedTaskHandler[T]) HandleTask(ctx context.Context, tc TaskContext, kwargs map[string]any) error {
	data, err := json.Marshal(kwargs)
	if err != nil {
		return fmt.Errorf("failed to marshal kwargs of task %q: %w", tc.TaskName, err)
	}

	var args T
	if err := json.Unmarshal(data, &args); err != nil {
		return fmt.Errorf("failed to bind kwargs of task %q to %T: %w", tc.TaskName, args, err)
	}

	return h.handler(ctx, tc, args)
}
