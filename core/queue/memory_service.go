package queue

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sqsx/core/logger"
)

// MemoryService implements Service in process memory for testing and local development.
// It emulates the visibility timeout model: received messages are hidden until
// they are deleted or their visibility timeout expires.
type MemoryService struct {
	mu     sync.Mutex
	queues map[string]*memoryQueue

	visibilityTimeout time.Duration
	pollInterval      time.Duration
	autoCreate        bool
	logger            *slog.Logger
	now               func() time.Time
}

type memoryQueue struct {
	messages []*memoryMessage
}

type memoryMessage struct {
	id                string
	body              string
	attributes        map[string]MessageAttribute
	sentAt            time.Time
	firstReceivedAt   time.Time
	receiveCount      int
	visibleAt         time.Time
	receiptHandle     string
	visibilityChanges []int
}

// MemoryServiceOption configures a MemoryService.
type MemoryServiceOption func(*MemoryService)

// WithVisibilityTimeout sets the visibility timeout applied on receive.
func WithVisibilityTimeout(d time.Duration) MemoryServiceOption {
	return func(ms *MemoryService) {
		if d > 0 {
			ms.visibilityTimeout = d
		}
	}
}

// WithMemoryPollInterval sets how often a long-polling receive checks for messages.
func WithMemoryPollInterval(d time.Duration) MemoryServiceOption {
	return func(ms *MemoryService) {
		if d > 0 {
			ms.pollInterval = d
		}
	}
}

// WithAutoCreateQueues makes unknown queue URLs behave like empty, existing queues.
func WithAutoCreateQueues() MemoryServiceOption {
	return func(ms *MemoryService) {
		ms.autoCreate = true
	}
}

// WithMemoryServiceLogger sets the logger for internal operations.
func WithMemoryServiceLogger(log *slog.Logger) MemoryServiceOption {
	return func(ms *MemoryService) {
		if log != nil {
			ms.logger = log
		}
	}
}

// NewMemoryService creates an empty in-memory queue service.
func NewMemoryService(opts ...MemoryServiceOption) *MemoryService {
	ms := &MemoryService{
		queues:            make(map[string]*memoryQueue),
		visibilityTimeout: 30 * time.Second,
		pollInterval:      10 * time.Millisecond,
		logger:            logger.Discard(),
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// CreateQueue registers an empty queue. Creating an existing queue is a no-op.
func (ms *MemoryService) CreateQueue(queueURL string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.queues[queueURL]; !ok {
		ms.queues[queueURL] = &memoryQueue{}
	}
}

// DeleteQueue removes a queue and all its messages.
func (ms *MemoryService) DeleteQueue(queueURL string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.queues, queueURL)
}

// Len returns the number of messages in the queue, visible or not.
func (ms *MemoryService) Len(queueURL string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[queueURL]
	if !ok {
		return 0
	}
	return len(q.messages)
}

// VisibleLen returns the number of messages that can be received right now.
func (ms *MemoryService) VisibleLen(queueURL string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[queueURL]
	if !ok {
		return 0
	}

	now := ms.now()
	n := 0
	for _, m := range q.messages {
		if !m.visibleAt.After(now) {
			n++
		}
	}
	return n
}

// VisibilityChanges returns the visibility timeouts set on a message, in call order.
func (ms *MemoryService) VisibilityChanges(queueURL, messageID string) []int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[queueURL]
	if !ok {
		return nil
	}
	for _, m := range q.messages {
		if m.id == messageID {
			return slices.Clone(m.visibilityChanges)
		}
	}
	return nil
}

// Send stores a new, immediately visible message.
func (ms *MemoryService) Send(ctx context.Context, queueURL, body string, attributes map[string]MessageAttribute) (SendResult, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, err := ms.queue(queueURL)
	if err != nil {
		return SendResult{}, err
	}

	now := ms.now()
	m := &memoryMessage{
		id:         uuid.New().String(),
		body:       body,
		attributes: cloneAttributes(attributes),
		sentAt:     now,
		visibleAt:  now,
	}
	q.messages = append(q.messages, m)

	return SendResult{
		MessageID:              m.id,
		MD5OfMessageBody:       md5Hex(body),
		MD5OfMessageAttributes: attributesDigest(attributes),
	}, nil
}

// Receive claims up to params.MaxMessages visible messages in send order,
// waiting up to params.WaitSeconds for at least one.
func (ms *MemoryService) Receive(ctx context.Context, queueURL string, params ReceiveParams) ([]Message, error) {
	limit := min(max(params.MaxMessages, 1), MaxReceiveBatch)
	deadline := ms.now().Add(time.Duration(params.WaitSeconds) * time.Second)

	ticker := time.NewTicker(ms.pollInterval)
	defer ticker.Stop()

	for {
		messages, err := ms.claim(queueURL, limit, params.AllAttributes)
		if err != nil || len(messages) > 0 {
			return messages, err
		}
		if !ms.now().Before(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (ms *MemoryService) claim(queueURL string, limit int, allAttributes bool) ([]Message, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, err := ms.queue(queueURL)
	if err != nil {
		return nil, err
	}

	now := ms.now()
	var messages []Message
	for _, m := range q.messages {
		if len(messages) == limit {
			break
		}
		if m.visibleAt.After(now) {
			continue
		}

		m.receiveCount++
		if m.firstReceivedAt.IsZero() {
			m.firstReceivedAt = now
		}
		m.visibleAt = now.Add(ms.visibilityTimeout)
		m.receiptHandle = m.id + "#" + uuid.New().String()

		messages = append(messages, m.toMessage(allAttributes))
	}

	if len(messages) > 0 {
		ms.logger.Debug("messages claimed",
			logger.QueueURL(queueURL),
			logger.Count("count", len(messages)))
	}

	return messages, nil
}

// Delete removes the message identified by its latest receipt handle.
func (ms *MemoryService) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, err := ms.queue(queueURL)
	if err != nil {
		return err
	}

	idx := q.indexByReceipt(receiptHandle)
	if idx < 0 {
		return ErrReceiptNotFound
	}
	q.messages = slices.Delete(q.messages, idx, idx+1)
	return nil
}

// ChangeVisibility hides the message for timeoutSeconds from now.
func (ms *MemoryService) ChangeVisibility(ctx context.Context, queueURL, receiptHandle string, timeoutSeconds int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, err := ms.queue(queueURL)
	if err != nil {
		return err
	}

	idx := q.indexByReceipt(receiptHandle)
	if idx < 0 {
		return ErrReceiptNotFound
	}

	m := q.messages[idx]
	m.visibleAt = ms.now().Add(time.Duration(timeoutSeconds) * time.Second)
	m.visibilityChanges = append(m.visibilityChanges, timeoutSeconds)
	return nil
}

// queue must be called with ms.mu held.
func (ms *MemoryService) queue(queueURL string) (*memoryQueue, error) {
	q, ok := ms.queues[queueURL]
	if !ok {
		if !ms.autoCreate {
			return nil, ErrQueueNotFound
		}
		q = &memoryQueue{}
		ms.queues[queueURL] = q
	}
	return q, nil
}

func (q *memoryQueue) indexByReceipt(receiptHandle string) int {
	if receiptHandle == "" {
		return -1
	}
	return slices.IndexFunc(q.messages, func(m *memoryMessage) bool {
		return m.receiptHandle == receiptHandle
	})
}

func (m *memoryMessage) toMessage(allAttributes bool) Message {
	msg := Message{
		ID:            m.id,
		ReceiptHandle: m.receiptHandle,
		Body:          m.body,
		MD5OfBody:     md5Hex(m.body),
	}
	if allAttributes {
		msg.Attributes = map[string]string{
			ReceiveCountAttribute:          strconv.Itoa(m.receiveCount),
			SentTimestampAttribute:         strconv.FormatInt(m.sentAt.UnixMilli(), 10),
			FirstReceiveTimestampAttribute: strconv.FormatInt(m.firstReceivedAt.UnixMilli(), 10),
		}
		msg.MessageAttributes = cloneAttributes(m.attributes)
	}
	return msg
}

func cloneAttributes(attributes map[string]MessageAttribute) map[string]MessageAttribute {
	if attributes == nil {
		return map[string]MessageAttribute{}
	}
	out := make(map[string]MessageAttribute, len(attributes))
	for k, v := range attributes {
		v.BinaryValue = slices.Clone(v.BinaryValue)
		out[k] = v
	}
	return out
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// attributesDigest is a stable digest of the attributes; it is not the
// service's wire-level attribute MD5.
func attributesDigest(attributes map[string]MessageAttribute) string {
	if len(attributes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		a := attributes[k]
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(a.DataType)
		b.WriteByte(0)
		b.WriteString(a.StringValue)
		b.Write(a.BinaryValue)
		b.WriteByte(0)
	}
	return md5Hex(b.String())
}
