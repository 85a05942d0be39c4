package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/sqsx/core/logger"
)

// dispatcher settles a single message: exactly one ack or nack and exactly one
// log record per message. Routing, payload and handler failures are resolved here
// and never propagate; only service (transport) failures are returned.
type dispatcher struct {
	queueURL string
	acker    *acker
	logger   *slog.Logger
	stats    *counters
}

// reject nacks msg with the default bounds without invoking any handler.
func (d *dispatcher) reject(ctx context.Context, msg Message, level slog.Level, text string, cause error, attrs ...slog.Attr) error {
	attrs = append(d.messageAttrs(msg, attrs...),
		logger.Outcome("nack"),
		logger.Backoff(d.acker.backoff(msg, nil)),
		logger.Error(cause),
	)
	d.logger.LogAttrs(ctx, level, text, attrs...)

	return d.acker.nack(ctx, msg, nil)
}

// run invokes fn and settles msg according to the classified result.
// kind names the unit of work in log records ("task" or "message").
func (d *dispatcher) run(ctx context.Context, msg Message, kind string, fn func(context.Context) error, attrs ...slog.Attr) error {
	d.stats.active.Add(1)
	err := d.invoke(ctx, fn)
	d.stats.active.Add(-1)

	attrs = d.messageAttrs(msg, attrs...)

	switch Classify(err) {
	case OutcomeRetry:
		var retryErr *RetryError
		errors.As(err, &retryErr)
		bounds := retryErr.Bounds()
		d.logger.LogAttrs(ctx, slog.LevelInfo, "received a retry request, setting a custom backoff policy",
			append(attrs,
				logger.Outcome("nack"),
				slog.Int("min_backoff_seconds", bounds.MinSeconds),
				slog.Int("max_backoff_seconds", bounds.MaxSeconds),
				logger.Backoff(d.acker.backoff(msg, &bounds)),
				logger.Error(retryErr.Err),
			)...)
		return d.acker.nack(ctx, msg, &bounds)

	case OutcomeDrop:
		d.logger.LogAttrs(ctx, slog.LevelInfo, "received a no-retry request, removing the "+kind,
			append(attrs, logger.Outcome("ack"), logger.Error(err))...)
		return d.acker.ack(ctx, msg)

	case OutcomeFailure:
		d.logger.LogAttrs(ctx, slog.LevelError, "error while processing "+kind,
			append(attrs,
				logger.Outcome("nack"),
				logger.Backoff(d.acker.backoff(msg, nil)),
				logger.Error(err),
			)...)
		return d.acker.nack(ctx, msg, nil)

	default:
		d.logger.LogAttrs(ctx, slog.LevelInfo, kind+" processed",
			append(attrs, logger.Outcome("ack"))...)
		return d.acker.ack(ctx, msg)
	}
}

// invoke runs fn, turning a panic into a handler failure.
func (d *dispatcher) invoke(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return fn(ctx)
}

func (d *dispatcher) messageAttrs(msg Message, extra ...slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(extra)+6)
	attrs = append(attrs,
		logger.QueueURL(d.queueURL),
		logger.MessageID(msg.ID),
		logger.RetryCount(msg.RetryCount()),
	)
	return append(attrs, extra...)
}
