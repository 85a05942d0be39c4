package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/sqsx/core/logger"
)

// consumer polls the queue service and runs a dispatch function for every
// received message on a worker pool bounded by maxThreads. A batch is fully
// settled before the next poll starts.
type consumer struct {
	svc        Service
	queueURL   string
	consumerID uuid.UUID
	logger     *slog.Logger
	stats      *counters

	mu       sync.Mutex
	running  bool
	stopping atomic.Bool
	wake     chan struct{}

	maxThreads atomic.Int32
}

func newConsumer(svc Service, queueURL string, log *slog.Logger, stats *counters) *consumer {
	return &consumer{
		svc:        svc,
		queueURL:   queueURL,
		consumerID: uuid.New(),
		logger:     log,
		stats:      stats,
		wake:       make(chan struct{}, 1),
	}
}

// consume runs the poll loop until a stop is requested, or after a single
// cycle when runForever is off. Stop requests (Stop, a configured signal or
// ctx cancellation) are only observed between cycles: in-flight handlers are
// never interrupted and every claimed message is acked or nacked.
//
// Service failures end the loop and are returned.
func (c *consumer) consume(ctx context.Context, dispatch func(context.Context, Message) error, opts *consumeOptions) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyConsuming
	}
	c.running = true
	c.stopping.Store(false)
	c.maxThreads.Store(int32(opts.maxThreads))
	c.drainWake()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	done := make(chan struct{})
	defer close(done)
	c.watchStopRequests(ctx, done, opts.signals)

	// Handlers and service calls outlive ctx cancellation; ctx only requests a stop.
	workCtx := context.WithoutCancel(ctx)

	c.logger.InfoContext(ctx, "starting consuming messages",
		logger.QueueURL(c.queueURL),
		slog.String("consumer_id", c.consumerID.String()),
		slog.Int("max_messages", min(opts.maxMessages, MaxReceiveBatch)),
		slog.Int("max_threads", opts.maxThreads))

	for {
		if c.stopping.Load() {
			c.logger.InfoContext(workCtx, "stopping consuming messages",
				logger.QueueURL(c.queueURL),
				slog.String("consumer_id", c.consumerID.String()))
			return nil
		}

		messages, err := c.svc.Receive(workCtx, c.queueURL, ReceiveParams{
			MaxMessages:   min(opts.maxMessages, MaxReceiveBatch),
			WaitSeconds:   opts.pollingWaitSeconds,
			AllAttributes: true,
		})
		if err != nil {
			err = fmt.Errorf("%w: receive messages: %w", ErrTransport, err)
			c.logger.ErrorContext(workCtx, "failed to receive messages",
				logger.QueueURL(c.queueURL),
				logger.Error(err))
			return err
		}

		if len(messages) == 0 {
			c.logger.DebugContext(workCtx, "no message received, waiting",
				logger.QueueURL(c.queueURL),
				slog.Int("wait_seconds", opts.waitSeconds))
			c.idle(time.Duration(opts.waitSeconds) * time.Second)
		} else if err := c.dispatchBatch(workCtx, messages, dispatch, opts.maxThreads); err != nil {
			c.logger.ErrorContext(workCtx, "failed to settle messages",
				logger.QueueURL(c.queueURL),
				logger.Error(err))
			return err
		}

		if !opts.runForever {
			return nil
		}
	}
}

// dispatchBatch runs dispatch for every message with at most maxThreads in
// flight and waits for all of them. A failing message does not cancel the others.
func (c *consumer) dispatchBatch(ctx context.Context, messages []Message, dispatch func(context.Context, Message) error, maxThreads int) error {
	c.logger.DebugContext(ctx, "received messages",
		logger.QueueURL(c.queueURL),
		logger.Count("messages", len(messages)))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxThreads)

	for _, msg := range messages {
		g.Go(func() error {
			if err := dispatch(ctx, msg); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// idle sleeps for d unless a stop is requested first.
func (c *consumer) idle(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-c.wake:
	}
}

// requestStop sets the stop flag. Safe to call from any goroutine, any number of times.
func (c *consumer) requestStop() {
	c.stopping.Store(true)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *consumer) drainWake() {
	select {
	case <-c.wake:
	default:
	}
}

// watchStopRequests turns signals and ctx cancellation into stop requests until done is closed.
func (c *consumer) watchStopRequests(ctx context.Context, done <-chan struct{}, signals []os.Signal) {
	var sigCh chan os.Signal
	if len(signals) > 0 {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
	}

	go func() {
		if sigCh != nil {
			defer signal.Stop(sigCh)
		}

		select {
		case sig := <-sigCh:
			c.logger.Info("starting graceful shutdown process",
				logger.QueueURL(c.queueURL),
				slog.String("signal", sig.String()))
			c.requestStop()
		case <-ctx.Done():
			c.logger.Info("context done, starting graceful shutdown process",
				logger.QueueURL(c.queueURL),
				logger.Error(context.Cause(ctx)))
			c.requestStop()
		case <-done:
		}
	}()
}

func (c *consumer) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
