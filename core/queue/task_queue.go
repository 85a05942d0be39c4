package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/sqsx/core/logger"
)

// TaskQueue routes messages to handlers by the TaskName message attribute and
// passes them the decoded keyword arguments of the message body.
//
// Handlers must be registered before Consume is called; registering while
// consuming is not supported.
type TaskQueue struct {
	*engine

	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

// NewTaskQueue creates a task queue bound to queueURL.
// The URL is validated here, not at poll time.
func NewTaskQueue(svc Service, queueURL string, opts ...Option) (*TaskQueue, error) {
	e, err := newEngine(svc, queueURL, opts...)
	if err != nil {
		return nil, err
	}

	return &TaskQueue{
		engine:   e,
		handlers: make(map[string]TaskHandler),
	}, nil
}

// NewTaskQueueFromConfig creates a TaskQueue from configuration.
// Additional options override config values.
func NewTaskQueueFromConfig(cfg Config, svc Service, queueURL string, opts ...Option) (*TaskQueue, error) {
	return NewTaskQueue(svc, queueURL, append(cfg.Options(), opts...)...)
}

// AddTaskHandler registers handler under taskName, replacing any previous one.
func (q *TaskQueue) AddTaskHandler(taskName string, handler TaskHandler) error {
	if taskName == "" {
		return ErrEmptyTaskName
	}
	if handler == nil {
		return ErrHandlerNil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[taskName] = handler
	return nil
}

// AddTaskHandlerFunc registers a function handler under taskName.
func (q *TaskQueue) AddTaskHandlerFunc(taskName string, fn func(ctx context.Context, tc TaskContext, kwargs map[string]any) error) error {
	if fn == nil {
		return ErrHandlerNil
	}
	return q.AddTaskHandler(taskName, TaskHandlerFunc(fn))
}

// HandlerCount returns the number of registered handlers.
func (q *TaskQueue) HandlerCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.handlers)
}

// AddTask enqueues a task message for taskName with the given keyword arguments.
func (q *TaskQueue) AddTask(ctx context.Context, taskName string, kwargs map[string]any) (SendResult, error) {
	if taskName == "" {
		return SendResult{}, ErrEmptyTaskName
	}

	body, err := EncodeKwargs(kwargs)
	if err != nil {
		return SendResult{}, err
	}

	res, err := q.svc.Send(ctx, q.url, body, map[string]MessageAttribute{
		TaskNameAttribute: StringAttribute(taskName),
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: send task %q: %w", ErrTransport, taskName, err)
	}

	return res, nil
}

// Consume polls the queue and dispatches messages to the registered handlers.
// It blocks until a stop is requested (Stop, SIGINT/SIGTERM or ctx cancellation),
// or after one poll cycle with WithRunForever(false). The batch in flight when a
// stop is requested always runs to completion.
func (q *TaskQueue) Consume(ctx context.Context, opts ...ConsumeOption) error {
	return q.consume(ctx, q.consumeMessage, opts...)
}

// consumeMessage resolves, decodes and runs the handler of a single message.
func (q *TaskQueue) consumeMessage(ctx context.Context, msg Message) error {
	d := q.dispatcher

	taskName, ok := msg.TaskName()
	if !ok {
		return d.reject(ctx, msg, slog.LevelWarn, "message without TaskName attribute", ErrMissingTaskName)
	}

	q.mu.RLock()
	handler, ok := q.handlers[taskName]
	q.mu.RUnlock()

	if !ok {
		return d.reject(ctx, msg, slog.LevelWarn, "task handler not found",
			fmt.Errorf("%w: %s", ErrHandlerNotFound, taskName), logger.TaskName(taskName))
	}

	kwargs, err := DecodeKwargs(msg.Body)
	if err != nil {
		return d.reject(ctx, msg, slog.LevelError, "invalid message body", err, logger.TaskName(taskName))
	}

	tc := TaskContext{
		QueueURL: q.url,
		TaskName: taskName,
		Message:  msg,
	}

	return d.run(ctx, msg, "task", func(ctx context.Context) error {
		return handler.HandleTask(ctx, tc, kwargs)
	}, logger.TaskName(taskName))
}

// IsRoutingError reports whether err is a routing or payload failure of a task message.
func IsRoutingError(err error) bool {
	return errors.Is(err, ErrMissingTaskName) ||
		errors.Is(err, ErrHandlerNotFound) ||
		errors.Is(err, ErrInvalidEnvelope)
}
