package sqs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/sqsx/core/queue"
)

// Domain-specific SQS errors. Use errors.Is() to check error types.
var (
	ErrInvalidConfig     = errors.New("invalid sqs configuration")
	ErrHealthcheckFailed = errors.New("sqs healthcheck failed")
	ErrOperationTimeout  = errors.New("sqs operation timed out")
	ErrOperationCanceled = errors.New("sqs operation canceled")
	ErrAccessDenied      = errors.New("sqs access denied")
	ErrThrottled         = errors.New("sqs request throttled")
)

// classifyError converts SQS errors to domain-specific errors.
// The result always matches queue.ErrTransport; queue.ErrQueueNotFound and
// queue.ErrReceiptNotFound are reported for their SQS counterparts.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s operation", queue.ErrTransport, ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w: %s operation", queue.ErrTransport, ErrOperationCanceled, operation)
	}

	var qdne *types.QueueDoesNotExist
	if errors.As(err, &qdne) {
		return fmt.Errorf("%w: %w: %s operation", queue.ErrTransport, queue.ErrQueueNotFound, operation)
	}

	var rhi *types.ReceiptHandleIsInvalid
	if errors.As(err, &rhi) {
		return fmt.Errorf("%w: %w: %s operation", queue.ErrTransport, queue.ErrReceiptNotFound, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "AWS.SimpleQueueService.NonExistentQueue", "QueueDoesNotExist":
			return fmt.Errorf("%w: %w: %s operation", queue.ErrTransport, queue.ErrQueueNotFound, operation)
		case "ReceiptHandleIsInvalid":
			return fmt.Errorf("%w: %w: %s operation (code: %s)", queue.ErrTransport, queue.ErrReceiptNotFound, operation, code)
		case "AccessDenied", "AccessDeniedException":
			return fmt.Errorf("%w: %w: %s operation", queue.ErrTransport, ErrAccessDenied, operation)
		case "RequestThrottled", "ThrottlingException":
			return fmt.Errorf("%w: %w: %s operation", queue.ErrTransport, ErrThrottled, operation)
		default:
			return fmt.Errorf("%w: %s operation failed (code: %s): %w", queue.ErrTransport, operation, code, err)
		}
	}

	return fmt.Errorf("%w: %s operation failed: %w", queue.ErrTransport, operation, err)
}
