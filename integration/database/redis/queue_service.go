package redis

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sqsx/core/queue"
)

// Compile-time check that QueueService implements queue.Service interface
var _ queue.Service = (*QueueService)(nil)

const (
	fieldBody            = "body"
	fieldAttributes      = "attributes"
	fieldSentAt          = "sent_at"
	fieldFirstReceivedAt = "first_received_at"
	fieldReceiveCount    = "receive_count"
	fieldReceipt         = "receipt"
)

var errSkipMessage = errors.New("message is no longer claimable")

// QueueService implements queue.Service on Redis for local development and
// environments without SQS. Each queue is a sorted set of message ids scored by
// the time they become visible, plus one hash per message. Claims use optimistic
// WATCH transactions, so several consumers may share a queue.
type QueueService struct {
	client            redis.UniversalClient
	prefix            string
	visibilityTimeout time.Duration
	pollInterval      time.Duration
}

// QueueServiceOption configures a QueueService.
type QueueServiceOption func(*QueueService)

// WithKeyPrefix sets the prefix of every key written by the service.
func WithKeyPrefix(prefix string) QueueServiceOption {
	return func(s *QueueService) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithVisibilityTimeout sets the visibility timeout applied on receive.
func WithVisibilityTimeout(d time.Duration) QueueServiceOption {
	return func(s *QueueService) {
		if d > 0 {
			s.visibilityTimeout = d
		}
	}
}

// WithPollInterval sets how often a long-polling receive checks for messages.
func WithPollInterval(d time.Duration) QueueServiceOption {
	return func(s *QueueService) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewQueueService creates a Redis backed queue service.
func NewQueueService(client redis.UniversalClient, opts ...QueueServiceOption) (*QueueService, error) {
	if client == nil {
		return nil, ErrClientNil
	}

	s := &QueueService{
		client:            client,
		prefix:            "sqsx",
		visibilityTimeout: 30 * time.Second,
		pollInterval:      100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send stores a new, immediately visible message.
func (s *QueueService) Send(ctx context.Context, queueURL, body string, attributes map[string]queue.MessageAttribute) (queue.SendResult, error) {
	attrs, err := json.Marshal(attributes)
	if err != nil {
		return queue.SendResult{}, fmt.Errorf("failed to marshal message attributes: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UnixMilli()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.messageKey(queueURL, id),
			fieldBody, body,
			fieldAttributes, string(attrs),
			fieldSentAt, now,
			fieldReceiveCount, 0,
		)
		pipe.ZAdd(ctx, s.visibleKey(queueURL), redis.Z{Score: float64(now), Member: id})
		return nil
	})
	if err != nil {
		return queue.SendResult{}, fmt.Errorf("%w: send: %w", queue.ErrTransport, err)
	}

	sum := md5.Sum([]byte(body))
	return queue.SendResult{
		MessageID:        id,
		MD5OfMessageBody: hex.EncodeToString(sum[:]),
	}, nil
}

// Receive claims up to params.MaxMessages visible messages, oldest visibility
// first, waiting up to params.WaitSeconds for at least one.
func (s *QueueService) Receive(ctx context.Context, queueURL string, params queue.ReceiveParams) ([]queue.Message, error) {
	limit := min(max(params.MaxMessages, 1), queue.MaxReceiveBatch)
	deadline := time.Now().Add(time.Duration(params.WaitSeconds) * time.Second)

	for {
		messages, err := s.claim(ctx, queueURL, limit, params.AllAttributes)
		if err != nil || len(messages) > 0 {
			return messages, err
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *QueueService) claim(ctx context.Context, queueURL string, limit int, allAttributes bool) ([]queue.Message, error) {
	now := time.Now().UnixMilli()

	ids, err := s.client.ZRangeByScore(ctx, s.visibleKey(queueURL), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: receive: %w", queue.ErrTransport, err)
	}

	messages := make([]queue.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.claimOne(ctx, queueURL, id, now, allAttributes)
		if errors.Is(err, errSkipMessage) || errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return messages, fmt.Errorf("%w: receive: %w", queue.ErrTransport, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *QueueService) claimOne(ctx context.Context, queueURL, id string, now int64, allAttributes bool) (queue.Message, error) {
	visibleKey := s.visibleKey(queueURL)
	msgKey := s.messageKey(queueURL, id)

	var msg queue.Message
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		score, err := tx.ZScore(ctx, visibleKey, id).Result()
		if errors.Is(err, redis.Nil) {
			return errSkipMessage
		}
		if err != nil {
			return err
		}
		if int64(score) > now {
			return errSkipMessage
		}

		fields, err := tx.HGetAll(ctx, msgKey).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return errSkipMessage
		}

		receipt := id + "#" + uuid.NewString()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, visibleKey, redis.Z{Score: float64(now + s.visibilityTimeout.Milliseconds()), Member: id})
			pipe.HIncrBy(ctx, msgKey, fieldReceiveCount, 1)
			pipe.HSet(ctx, msgKey, fieldReceipt, receipt)
			pipe.HSetNX(ctx, msgKey, fieldFirstReceivedAt, now)
			return nil
		})
		if err != nil {
			return err
		}

		msg, err = buildMessage(id, receipt, fields, now, allAttributes)
		return err
	}, visibleKey, msgKey)

	return msg, err
}

// Delete removes the message identified by its latest receipt handle.
func (s *QueueService) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	return s.withReceipt(ctx, queueURL, receiptHandle, "delete", func(pipe redis.Pipeliner, id string) {
		pipe.Del(ctx, s.messageKey(queueURL, id))
		pipe.ZRem(ctx, s.visibleKey(queueURL), id)
	})
}

// ChangeVisibility hides the message for timeoutSeconds from now.
func (s *QueueService) ChangeVisibility(ctx context.Context, queueURL, receiptHandle string, timeoutSeconds int) error {
	visibleAt := time.Now().Add(time.Duration(timeoutSeconds) * time.Second).UnixMilli()
	return s.withReceipt(ctx, queueURL, receiptHandle, "change visibility", func(pipe redis.Pipeliner, id string) {
		pipe.ZAddXX(ctx, s.visibleKey(queueURL), redis.Z{Score: float64(visibleAt), Member: id})
	})
}

// withReceipt runs fn in a transaction if receiptHandle is the latest receipt of its message.
func (s *QueueService) withReceipt(ctx context.Context, queueURL, receiptHandle, operation string, fn func(pipe redis.Pipeliner, id string)) error {
	id, ok := messageIDFromReceipt(receiptHandle)
	if !ok {
		return fmt.Errorf("%w: %w: %s", queue.ErrTransport, queue.ErrReceiptNotFound, operation)
	}
	msgKey := s.messageKey(queueURL, id)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, msgKey, fieldReceipt).Result()
		if errors.Is(err, redis.Nil) || (err == nil && current != receiptHandle) {
			return queue.ErrReceiptNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			fn(pipe, id)
			return nil
		})
		return err
	}, msgKey)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", queue.ErrTransport, operation, err)
	}
	return nil
}

func (s *QueueService) visibleKey(queueURL string) string {
	return s.prefix + ":{" + queueURL + "}:visible"
}

func (s *QueueService) messageKey(queueURL, id string) string {
	return s.prefix + ":{" + queueURL + "}:msg:" + id
}

func messageIDFromReceipt(receiptHandle string) (string, bool) {
	id, _, ok := strings.Cut(receiptHandle, "#")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func buildMessage(id, receipt string, fields map[string]string, now int64, allAttributes bool) (queue.Message, error) {
	body := fields[fieldBody]
	sum := md5.Sum([]byte(body))

	msg := queue.Message{
		ID:            id,
		ReceiptHandle: receipt,
		Body:          body,
		MD5OfBody:     hex.EncodeToString(sum[:]),
	}
	if !allAttributes {
		return msg, nil
	}

	receiveCount, _ := strconv.Atoi(fields[fieldReceiveCount])
	firstReceivedAt := fields[fieldFirstReceivedAt]
	if firstReceivedAt == "" {
		firstReceivedAt = strconv.FormatInt(now, 10)
	}

	msg.Attributes = map[string]string{
		queue.ReceiveCountAttribute:          strconv.Itoa(receiveCount + 1),
		queue.SentTimestampAttribute:         fields[fieldSentAt],
		queue.FirstReceiveTimestampAttribute: firstReceivedAt,
	}

	msg.MessageAttributes = map[string]queue.MessageAttribute{}
	if raw := fields[fieldAttributes]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &msg.MessageAttributes); err != nil {
			return queue.Message{}, fmt.Errorf("%w: attributes of %s: %w", queue.ErrMessageMalformed, id, err)
		}
	}

	return msg, nil
}
