package queue

import (
	"errors"
)

// Outcome is the classification of a handler invocation.
type Outcome uint8

const (
	// OutcomeOK means the handler completed; the message is acknowledged.
	OutcomeOK Outcome = iota
	// OutcomeRetry means the handler asked for redelivery with custom bounds.
	OutcomeRetry
	// OutcomeDrop means the handler asked to discard the message; it is acknowledged.
	OutcomeDrop
	// OutcomeFailure means the handler failed; the message is redelivered with default bounds.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRetry:
		return "retry"
	case OutcomeDrop:
		return "drop"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Classify maps a handler error to its outcome. A retry request takes
// precedence over ErrNoRetry when an error carries both.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}

	var retryErr *RetryError
	if errors.As(err, &retryErr) {
		return OutcomeRetry
	}

	if errors.Is(err, ErrNoRetry) {
		return OutcomeDrop
	}

	return OutcomeFailure
}
