package queue_test

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/sqsx/core/queue"
)

const (
	testQueueURL    = "http://localhost:9324/000000000000/tests"
	testRawQueueURL = "http://localhost:9324/000000000000/raw_tests"
)

// MockService is a mock implementation of queue.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Receive(ctx context.Context, queueURL string, params queue.ReceiveParams) ([]queue.Message, error) {
	args := m.Called(ctx, queueURL, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]queue.Message), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	args := m.Called(ctx, queueURL, receiptHandle)
	return args.Error(0)
}

func (m *MockService) ChangeVisibility(ctx context.Context, queueURL, receiptHandle string, timeoutSeconds int) error {
	args := m.Called(ctx, queueURL, receiptHandle, timeoutSeconds)
	return args.Error(0)
}

func (m *MockService) Send(ctx context.Context, queueURL, body string, attributes map[string]queue.MessageAttribute) (queue.SendResult, error) {
	args := m.Called(ctx, queueURL, body, attributes)
	return args.Get(0).(queue.SendResult), args.Error(1)
}

// testMessage mirrors a real delivery of the task my_task with kwargs {a:1, b:2, c:3}.
func testMessage() queue.Message {
	return queue.Message{
		ID:            "33425f12-50e6-4f93-ac26-7ae7a069cf88",
		ReceiptHandle: "33425f12-50e6-4f93-ac26-7ae7a069cf88#d128816c-aea8-406b-bbdd-1edbacb5573f",
		Body:          "eyJrd2FyZ3MiOiB7ImEiOiAxLCAiYiI6IDIsICJjIjogM319",
		Attributes: map[string]string{
			"SentTimestamp":                    "1702512255653",
			"ApproximateReceiveCount":          "1",
			"ApproximateFirstReceiveTimestamp": "1702512255660",
			"SenderId":                         "127.0.0.1",
		},
		MessageAttributes: map[string]queue.MessageAttribute{
			"TaskName": queue.StringAttribute("my_task"),
		},
	}
}

// logRecord is a captured log entry.
type logRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordingHandler captures log records for assertions.
type recordingHandler struct {
	mu      *sync.Mutex
	records *[]logRecord
	attrs   []slog.Attr
}

func newRecordingLogger() (*slog.Logger, func() []logRecord) {
	h := &recordingHandler{mu: &sync.Mutex{}, records: &[]logRecord{}}
	return slog.New(h), func() []logRecord {
		h.mu.Lock()
		defer h.mu.Unlock()
		out := make([]logRecord, len(*h.records))
		copy(out, *h.records)
		return out
	}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := logRecord{Level: r.Level, Message: r.Message, Attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "" {
			rec.Attrs[a.Key] = a.Value.Any()
		}
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, rec)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{mu: h.mu, records: h.records, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

// messageRecords filters out consumer lifecycle records, keeping per-message ones.
func messageRecords(records []logRecord) []logRecord {
	var out []logRecord
	for _, r := range records {
		if _, ok := r.Attrs["message_id"]; ok {
			out = append(out, r)
		}
	}
	return out
}
