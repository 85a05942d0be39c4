// Package redis provides Redis client initialization, health checking and a
// Redis-backed implementation of queue.Service.
//
// # Connecting
//
//	cfg := redis.Config{
//		ConnectionURL:  "redis://localhost:6379/0",
//		RetryAttempts:  3,
//		RetryInterval:  5 * time.Second,
//		ConnectTimeout: 30 * time.Second,
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal("Failed to connect to Redis:", err)
//	}
//	defer client.Close()
//
// Connect validates the URL scheme (redis:// or rediss://), retries the initial
// ping with exponential backoff and respects ctx cancellation.
//
// # Queue Service
//
// QueueService emulates the visibility timeout model of SQS, which lets the
// consumer run against Redis in development or CI:
//
//	svc, err := redis.NewQueueService(client, redis.WithVisibilityTimeout(time.Minute))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	q, err := queue.NewTaskQueue(svc, "http://localhost:9324/000000000000/tasks")
//
// Every queue URL maps to a sorted set of message ids scored by visibility time
// and one hash per message. Receipt handles are "<message id>#<uuid>"; only the
// latest receipt of a message can delete it or change its visibility.
//
// # Health Checking
//
//	healthCheck := redis.Healthcheck(client)
//	if err := healthCheck(ctx); err != nil {
//		// redis.ErrHealthcheckFailed
//	}
//
// # Error Handling
//
//   - ErrFailedToParseRedisConnString: the Redis connection URL is malformed
//   - ErrRedisNotReady: Redis did not answer a ping within the retry budget
//   - ErrEmptyConnectionURL: no connection URL was provided
//   - ErrHealthcheckFailed: the health check ping failed
//   - ErrClientNil: NewQueueService was given a nil client
//
// QueueService errors match queue.ErrTransport, and queue.ErrReceiptNotFound for
// stale or unknown receipt handles.
package redis
