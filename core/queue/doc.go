// Package queue consumes messages from a visibility-timeout queue service
// (Amazon SQS or a compatible one) and dispatches them to handlers.
//
// Two consumers are provided:
//
//   - TaskQueue routes a message to the handler registered under its TaskName
//     message attribute and passes it the keyword arguments decoded from the body.
//   - RawQueue passes every message, undecoded, to a single handler.
//
// Every received message is settled exactly once: it is acknowledged
// (deleted) or negatively acknowledged (hidden for a backoff delay so the
// service redelivers it later).
//
// # Basic Usage
//
//	svc, err := sqs.New(ctx, sqsCfg)
//	if err != nil {
//		return err
//	}
//
//	q, err := queue.NewTaskQueue(svc, queueURL, queue.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	q.AddTaskHandlerFunc("send_email", func(ctx context.Context, tc queue.TaskContext, kwargs map[string]any) error {
//		return mailer.Send(ctx, kwargs["to"].(string))
//	})
//
//	// Blocks until SIGINT/SIGTERM, Stop or ctx cancellation.
//	err = q.Consume(ctx, queue.WithMaxMessages(10), queue.WithMaxThreads(4))
//
// Producers enqueue tasks with AddTask:
//
//	q.AddTask(ctx, "send_email", map[string]any{"to": "user@example.com"})
//
// # Message Body
//
// A task message body is the URL-safe base64 encoding of the JSON document
// {"kwargs": {...}}. See EncodeKwargs and DecodeKwargs.
//
// # Handler Results
//
// The error returned by a handler decides the fate of the message:
//
//	return nil                        // ack
//	return queue.ErrNoRetry           // ack, never redelivered
//	return queue.Retry(100, 200)      // nack with custom backoff bounds
//	return err                        // nack with the queue default bounds
//
// A panicking handler is treated as a failing one. Messages without a
// TaskName, with an unknown TaskName or with an undecodable body are
// nacked with the default bounds without running any handler.
//
// # Backoff
//
// The redelivery delay is min(min * 2^retries, max) seconds, where retries is
// the receive count minus one and max is capped at 12 hours. See ComputeDelay.
//
// # Shutdown
//
// A stop request (Stop, a configured signal or ctx cancellation) is honored
// between poll cycles. The batch in flight always runs to completion and its
// handlers are never canceled. Queue service failures end Consume with an
// error wrapping ErrTransport.
//
// # Testing
//
// MemoryService implements Service in memory with visibility timeout
// semantics, for tests and local development.
package queue
