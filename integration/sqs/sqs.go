package sqs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sqsaws "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/dmitrymomot/sqsx/core/queue"
)

// Compile-time check that Service implements queue.Service interface
var _ queue.Service = (*Service)(nil)

// Client defines the SQS operations used by Service. *sqs.Client satisfies it.
type Client interface {
	ReceiveMessage(ctx context.Context, params *sqsaws.ReceiveMessageInput, optFns ...func(*sqsaws.Options)) (*sqsaws.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqsaws.DeleteMessageInput, optFns ...func(*sqsaws.Options)) (*sqsaws.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqsaws.ChangeMessageVisibilityInput, optFns ...func(*sqsaws.Options)) (*sqsaws.ChangeMessageVisibilityOutput, error)
	SendMessage(ctx context.Context, params *sqsaws.SendMessageInput, optFns ...func(*sqsaws.Options)) (*sqsaws.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqsaws.GetQueueAttributesInput, optFns ...func(*sqsaws.Options)) (*sqsaws.GetQueueAttributesOutput, error)
}

// Config contains the connection settings for Amazon SQS or a compatible service.
type Config struct {
	QueueURL    string `env:"SQS_QUEUE_URL"`
	Region      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint    string `env:"SQS_ENDPOINT"` // For ElasticMQ, LocalStack and other SQS-compatible services
}

// Option defines a function that configures Service.
type Option func(*sqsOptions)

type sqsOptions struct {
	httpClient    *http.Client
	client        Client
	configOptions []func(*config.LoadOptions) error
	clientOptions []func(*sqsaws.Options)
}

// WithClient sets a custom pre-configured SQS client.
// Primarily used for testing with mocks.
func WithClient(client Client) Option {
	return func(o *sqsOptions) {
		o.client = client
	}
}

// WithHTTPClient sets a custom HTTP client for SQS requests.
// Keep its timeout above the long-poll duration.
func WithHTTPClient(client *http.Client) Option {
	return func(o *sqsOptions) {
		o.httpClient = client
	}
}

// WithConfigOption adds a custom AWS config option.
func WithConfigOption(option func(*config.LoadOptions) error) Option {
	return func(o *sqsOptions) {
		o.configOptions = append(o.configOptions, option)
	}
}

// WithClientOption adds a custom SQS client option.
func WithClientOption(option func(*sqsaws.Options)) Option {
	return func(o *sqsOptions) {
		o.clientOptions = append(o.clientOptions, option)
	}
}

// Service implements queue.Service on top of Amazon SQS.
// It is safe for concurrent use.
type Service struct {
	client Client
}

// New creates an SQS backed queue service.
// Static credentials are used when both keys are set; otherwise the default
// AWS credential chain (env, shared config, IAM role) applies.
func New(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	options := &sqsOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.client != nil {
		return &Service{client: options.client}, nil
	}

	if cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	awsOptions := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		awsOptions = append(awsOptions,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretKey,
				"",
			)),
		)
	}

	if options.httpClient != nil {
		awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
	}

	awsOptions = append(awsOptions, options.configOptions...)

	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqsaws.NewFromConfig(awsConfig, func(o *sqsaws.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		for _, opt := range options.clientOptions {
			opt(o)
		}
	})

	return &Service{client: client}, nil
}

// Receive long-polls the queue for up to params.MaxMessages messages.
func (s *Service) Receive(ctx context.Context, queueURL string, params queue.ReceiveParams) ([]queue.Message, error) {
	input := &sqsaws.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: int32(min(max(params.MaxMessages, 1), queue.MaxReceiveBatch)),
		WaitTimeSeconds:     int32(max(params.WaitSeconds, 0)),
	}
	if params.AllAttributes {
		input.MessageSystemAttributeNames = []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll}
		input.MessageAttributeNames = []string{"All"}
	}

	out, err := s.client.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, classifyError(err, "receive")
	}

	messages := make([]queue.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, fromSQSMessage(m))
	}
	return messages, nil
}

// Delete removes a received message.
func (s *Service) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	_, err := s.client.DeleteMessage(ctx, &sqsaws.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	return classifyError(err, "delete")
}

// ChangeVisibility sets the visibility timeout of a received message.
func (s *Service) ChangeVisibility(ctx context.Context, queueURL, receiptHandle string, timeoutSeconds int) error {
	_, err := s.client.ChangeMessageVisibility(ctx, &sqsaws.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(queueURL),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: int32(timeoutSeconds),
	})
	return classifyError(err, "change visibility")
}

// Send enqueues a message.
func (s *Service) Send(ctx context.Context, queueURL, body string, attributes map[string]queue.MessageAttribute) (queue.SendResult, error) {
	input := &sqsaws.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = toSQSAttributes(attributes)
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		return queue.SendResult{}, classifyError(err, "send")
	}

	return queue.SendResult{
		MessageID:              aws.ToString(out.MessageId),
		MD5OfMessageBody:       aws.ToString(out.MD5OfMessageBody),
		MD5OfMessageAttributes: aws.ToString(out.MD5OfMessageAttributes),
	}, nil
}

// Healthcheck returns a function that verifies the queue is reachable.
func Healthcheck(s *Service, queueURL string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.client.GetQueueAttributes(ctx, &sqsaws.GetQueueAttributesInput{
			QueueUrl:       aws.String(queueURL),
			AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrHealthcheckFailed, classifyError(err, "get queue attributes"))
		}
		return nil
	}
}

func fromSQSMessage(m types.Message) queue.Message {
	msg := queue.Message{
		ID:            aws.ToString(m.MessageId),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		Body:          aws.ToString(m.Body),
		MD5OfBody:     aws.ToString(m.MD5OfBody),
		Attributes:    m.Attributes,
	}
	if msg.Attributes == nil {
		msg.Attributes = map[string]string{}
	}

	msg.MessageAttributes = make(map[string]queue.MessageAttribute, len(m.MessageAttributes))
	for name, v := range m.MessageAttributes {
		msg.MessageAttributes[name] = queue.MessageAttribute{
			DataType:    aws.ToString(v.DataType),
			StringValue: aws.ToString(v.StringValue),
			BinaryValue: v.BinaryValue,
		}
	}
	return msg
}

func toSQSAttributes(attributes map[string]queue.MessageAttribute) map[string]types.MessageAttributeValue {
	out := make(map[string]types.MessageAttributeValue, len(attributes))
	for name, a := range attributes {
		dataType := a.DataType
		if dataType == "" {
			dataType = queue.DataTypeString
		}

		v := types.MessageAttributeValue{DataType: aws.String(dataType)}
		if a.BinaryValue != nil {
			v.BinaryValue = a.BinaryValue
		} else {
			v.StringValue = aws.String(a.StringValue)
		}
		out[name] = v
	}
	return out
}
