package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

type counters struct {
	acked  atomic.Int64
	nacked atomic.Int64
	active atomic.Int32
}

// Stats provides observability metrics for monitoring and debugging.
type Stats struct {
	MessagesAcked  int64 // Messages deleted from the queue (processed or dropped)
	MessagesNacked int64 // Messages scheduled for redelivery
	ActiveMessages int32 // Handlers currently running
	IsRunning      bool  // Whether Consume is currently running
}

// engine is the consumption machinery shared by TaskQueue and RawQueue.
type engine struct {
	url        string
	svc        Service
	logger     *slog.Logger
	stats      *counters
	consumer   *consumer
	dispatcher *dispatcher
}

func newEngine(svc Service, queueURL string, opts ...Option) (*engine, error) {
	if svc == nil {
		return nil, ErrServiceNil
	}
	if err := ValidateQueueURL(queueURL); err != nil {
		return nil, err
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	stats := &counters{}
	return &engine{
		url:      queueURL,
		svc:      svc,
		logger:   options.logger,
		stats:    stats,
		consumer: newConsumer(svc, queueURL, options.logger, stats),
		dispatcher: &dispatcher{
			queueURL: queueURL,
			logger:   options.logger,
			stats:    stats,
			acker: &acker{
				svc:      svc,
				queueURL: queueURL,
				defaults: options.backoff,
				stats:    stats,
			},
		},
	}, nil
}

// URL returns the queue address.
func (e *engine) URL() string {
	return e.url
}

// Backoff returns the default redelivery bounds.
func (e *engine) Backoff() Bounds {
	return e.dispatcher.acker.defaults
}

// Stop requests a graceful stop of a running Consume call. The current batch
// is completed first; no new poll starts afterwards.
func (e *engine) Stop() {
	e.consumer.requestStop()
}

// Stats returns current consumer statistics. Safe to call at any time.
func (e *engine) Stats() Stats {
	return Stats{
		MessagesAcked:  e.stats.acked.Load(),
		MessagesNacked: e.stats.nacked.Load(),
		ActiveMessages: e.stats.active.Load(),
		IsRunning:      e.consumer.isRunning(),
	}
}

// Healthcheck reports whether the consumer is running and has a free worker slot.
//
//	if errors.Is(err, queue.ErrConsumerNotRunning) { ... }
//	if errors.Is(err, queue.ErrConsumerOverloaded) { ... }
func (e *engine) Healthcheck(ctx context.Context) error {
	stats := e.Stats()

	if !stats.IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrConsumerNotRunning)
	}

	maxThreads := e.consumer.maxThreads.Load()
	if stats.ActiveMessages >= maxThreads {
		return errors.Join(ErrHealthcheckFailed, ErrConsumerOverloaded,
			fmt.Errorf("%d/%d workers busy", stats.ActiveMessages, maxThreads))
	}

	return nil
}

func (e *engine) consume(ctx context.Context, dispatch func(context.Context, Message) error, opts ...ConsumeOption) error {
	options := defaultConsumeOptions()
	for _, opt := range opts {
		opt(options)
	}
	return e.consumer.consume(ctx, dispatch, options)
}
