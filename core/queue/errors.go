package queue

import (
	"errors"
	"fmt"
)

// Configuration and lifecycle errors.
var (
	ErrServiceNil         = errors.New("queue service is nil")
	ErrHandlerNil         = errors.New("handler is nil")
	ErrInvalidQueueURL    = errors.New("invalid queue url")
	ErrEmptyTaskName      = errors.New("task name is empty")
	ErrAlreadyConsuming   = errors.New("queue is already consuming messages")
	ErrConsumerNotRunning = errors.New("consumer is not running")
	ErrConsumerOverloaded = errors.New("consumer is overloaded")
	ErrHealthcheckFailed  = errors.New("queue healthcheck failed")
)

// Routing and payload errors. They never leave the dispatch boundary:
// a message failing with one of them is negatively acknowledged.
var (
	ErrMissingTaskName  = errors.New("message has no TaskName attribute")
	ErrHandlerNotFound  = errors.New("task handler not found")
	ErrInvalidEnvelope  = errors.New("invalid task envelope")
	ErrReceiptNotFound  = errors.New("receipt handle is not valid")
	ErrQueueNotFound    = errors.New("queue does not exist")
	ErrTransport        = errors.New("queue service call failed")
	ErrMessageMalformed = errors.New("received message is malformed")
)

// ErrNoRetry is returned by a handler (directly or wrapped) to drop the message:
// it is acknowledged and never redelivered.
var ErrNoRetry = errors.New("no retry")

// RetryError asks for redelivery using custom backoff bounds instead of the
// queue defaults. Build it with Retry or RetryWithCause.
type RetryError struct {
	MinBackoffSeconds int
	MaxBackoffSeconds int
	Err               error
}

// Retry returns an error that schedules redelivery of the message with
// a backoff computed from the given bounds.
func Retry(minBackoffSeconds, maxBackoffSeconds int) error {
	return &RetryError{
		MinBackoffSeconds: minBackoffSeconds,
		MaxBackoffSeconds: maxBackoffSeconds,
	}
}

// RetryWithCause is like Retry but keeps the underlying failure for logging.
func RetryWithCause(cause error, minBackoffSeconds, maxBackoffSeconds int) error {
	return &RetryError{
		MinBackoffSeconds: minBackoffSeconds,
		MaxBackoffSeconds: maxBackoffSeconds,
		Err:               cause,
	}
}

func (e *RetryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retry requested (min=%ds, max=%ds): %v", e.MinBackoffSeconds, e.MaxBackoffSeconds, e.Err)
	}
	return fmt.Sprintf("retry requested (min=%ds, max=%ds)", e.MinBackoffSeconds, e.MaxBackoffSeconds)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Bounds returns the backoff bounds carried by the retry request.
func (e *RetryError) Bounds() Bounds {
	return Bounds{MinSeconds: e.MinBackoffSeconds, MaxSeconds: e.MaxBackoffSeconds}
}

// DecodeError reports a message body that is not a valid task envelope.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidEnvelope, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrInvalidEnvelope, e.Err}
}
