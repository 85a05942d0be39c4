// Package sqs provides the Amazon SQS implementation of queue.Service.
//
// It wraps the AWS SDK v2 SQS client and works with Amazon SQS as well as
// compatible services such as ElasticMQ and LocalStack.
//
// Basic usage:
//
//	import (
//		"context"
//
//		"github.com/dmitrymomot/sqsx/core/queue"
//		"github.com/dmitrymomot/sqsx/integration/sqs"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		svc, err := sqs.New(ctx, sqs.Config{
//			Region: "us-east-1", // Credentials come from the default AWS chain
//		})
//		if err != nil {
//			panic(err)
//		}
//
//		q, err := queue.NewTaskQueue(svc, "https://sqs.us-east-1.amazonaws.com/177715257436/MyQueue")
//		if err != nil {
//			panic(err)
//		}
//		_ = q.AddTaskHandlerFunc("send_email", sendEmail)
//		_ = q.Consume(ctx, queue.WithMaxMessages(10), queue.WithMaxThreads(4))
//	}
//
// # SQS-Compatible Services
//
// ElasticMQ configuration:
//
//	cfg := sqs.Config{
//		Region:      "elasticmq",
//		AccessKeyID: "x",
//		SecretKey:   "x",
//		Endpoint:    "http://localhost:9324",
//	}
//
// # Errors
//
// Every error returned by Service matches queue.ErrTransport. Missing queues and
// stale receipt handles additionally match queue.ErrQueueNotFound and
// queue.ErrReceiptNotFound; timeouts, cancellations, access and throttling
// failures match the errors declared in this package.
//
// # Testing
//
// WithClient replaces the SDK client with any implementation of Client,
// typically a testify mock.
package sqs
