package queue

import (
	"log/slog"
	"os"
	"syscall"

	"github.com/dmitrymomot/sqsx/core/logger"
)

// Default backoff bounds applied to negatively acknowledged messages.
const (
	DefaultMinBackoffSeconds = 30
	DefaultMaxBackoffSeconds = 900
)

// Option configures a TaskQueue or RawQueue.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	backoff Bounds
}

func defaultOptions() *options {
	return &options{
		logger: logger.Discard(), // No-op logger by default
		backoff: Bounds{
			MinSeconds: DefaultMinBackoffSeconds,
			MaxSeconds: DefaultMaxBackoffSeconds,
		},
	}
}

// WithLogger sets the logger used for consumer and per-message records.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithMinBackoffSeconds sets the default lower backoff bound.
func WithMinBackoffSeconds(seconds int) Option {
	return func(o *options) {
		if seconds >= 0 {
			o.backoff.MinSeconds = seconds
		}
	}
}

// WithMaxBackoffSeconds sets the default upper backoff bound.
func WithMaxBackoffSeconds(seconds int) Option {
	return func(o *options) {
		if seconds >= 0 {
			o.backoff.MaxSeconds = seconds
		}
	}
}

// ConsumeOption configures a single Consume run.
type ConsumeOption func(*consumeOptions)

type consumeOptions struct {
	maxMessages        int
	maxThreads         int
	waitSeconds        int
	pollingWaitSeconds int
	runForever         bool
	signals            []os.Signal
}

func defaultConsumeOptions() *consumeOptions {
	return &consumeOptions{
		maxMessages:        1,
		maxThreads:         1,
		waitSeconds:        10,
		pollingWaitSeconds: 10,
		runForever:         true,
		signals:            []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// WithMaxMessages sets how many messages are requested per poll.
// Values above MaxReceiveBatch are clamped when polling.
func WithMaxMessages(n int) ConsumeOption {
	return func(o *consumeOptions) {
		if n > 0 {
			o.maxMessages = n
		}
	}
}

// WithMaxThreads sets how many messages of a batch are dispatched concurrently.
func WithMaxThreads(n int) ConsumeOption {
	return func(o *consumeOptions) {
		if n > 0 {
			o.maxThreads = n
		}
	}
}

// WithWaitSeconds sets the idle delay after a poll that returned no messages.
func WithWaitSeconds(seconds int) ConsumeOption {
	return func(o *consumeOptions) {
		if seconds >= 0 {
			o.waitSeconds = seconds
		}
	}
}

// WithPollingWaitSeconds sets the long-poll duration of each receive call.
func WithPollingWaitSeconds(seconds int) ConsumeOption {
	return func(o *consumeOptions) {
		if seconds >= 0 {
			o.pollingWaitSeconds = seconds
		}
	}
}

// WithRunForever selects between continuous consumption (true) and a single
// poll cycle (false).
func WithRunForever(runForever bool) ConsumeOption {
	return func(o *consumeOptions) {
		o.runForever = runForever
	}
}

// WithSignals replaces the signals that request a graceful stop.
// Calling it without arguments disables signal handling.
func WithSignals(signals ...os.Signal) ConsumeOption {
	return func(o *consumeOptions) {
		o.signals = signals
	}
}
