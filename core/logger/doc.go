// Package logger builds slog loggers and provides attribute helpers with
// consistent keys for queue consumers.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithProduction("billing-worker"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//
//	log.Info("task processed",
//		logger.QueueURL(queueURL),
//		logger.MessageID(msg.ID),
//		logger.TaskName("send_email"),
//	)
//
// Helpers such as Error, MessageID and TaskName return an empty attribute for
// zero input, which slog handlers skip, so call sites need no nil checks.
//
// Discard returns a logger that drops everything; it is the default of the
// queue package.
package logger
