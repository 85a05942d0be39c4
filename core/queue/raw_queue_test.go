package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sqsx/core/queue"
)

func TestNewRawQueue(t *testing.T) {
	t.Parallel()

	noop := queue.RawHandlerFunc(func(context.Context, string, queue.Message) error { return nil })

	q, err := queue.NewRawQueue(new(MockService), testRawQueueURL, noop)
	require.NoError(t, err)
	assert.Equal(t, testRawQueueURL, q.URL())

	_, err = queue.NewRawQueue(new(MockService), testRawQueueURL, nil)
	assert.ErrorIs(t, err, queue.ErrHandlerNil)

	_, err = queue.NewRawQueue(nil, testRawQueueURL, noop)
	assert.ErrorIs(t, err, queue.ErrServiceNil)

	_, err = queue.NewRawQueue(new(MockService), "raw_tests", noop)
	assert.ErrorIs(t, err, queue.ErrInvalidQueueURL)

	cfg := queue.DefaultConfig()
	cfg.MaxBackoffSeconds = 120
	q, err = queue.NewRawQueueFromConfig(cfg, new(MockService), testRawQueueURL, noop)
	require.NoError(t, err)
	assert.Equal(t, queue.Bounds{MinSeconds: 30, MaxSeconds: 120}, q.Backoff())
}

func TestRawQueue_Consume(t *testing.T) {
	t.Parallel()

	svc := queue.NewMemoryService()
	svc.CreateQueue(testRawQueueURL)
	ctx := context.Background()

	var calls atomic.Int32
	q, err := queue.NewRawQueue(svc, testRawQueueURL, queue.RawHandlerFunc(func(_ context.Context, queueURL string, msg queue.Message) error {
		assert.Equal(t, testRawQueueURL, queueURL)
		assert.Equal(t, "hello", msg.Body)
		assert.Equal(t, "v", msg.MessageAttributes["k"].StringValue)
		calls.Add(1)
		return nil
	}))
	require.NoError(t, err)

	for range 3 {
		_, err := q.AddMessage(ctx, "hello", map[string]queue.MessageAttribute{"k": queue.StringAttribute("v")})
		require.NoError(t, err)
	}

	require.NoError(t, q.Consume(ctx,
		queue.WithMaxMessages(3),
		queue.WithMaxThreads(3),
		queue.WithRunForever(false),
		queue.WithSignals()))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, svc.Len(testRawQueueURL))
}

func TestRawQueue_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		expectAck  bool
		visibility int
		logMessage string
	}{
		{"success", nil, true, 0, "message processed"},
		{"failure", errors.New("boom"), false, 30, "error while processing message"},
		{"retry", queue.Retry(10, 20), false, 10, "received a retry request, setting a custom backoff policy"},
		{"no retry", queue.ErrNoRetry, true, 0, "received a no-retry request, removing the message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := testMessage()
			svc := new(MockService)
			defer svc.AssertExpectations(t)

			svc.On("Receive", mock.Anything, testRawQueueURL, defaultReceiveParams).Return([]queue.Message{msg}, nil).Once()
			if tt.expectAck {
				svc.On("Delete", mock.Anything, testRawQueueURL, msg.ReceiptHandle).Return(nil).Once()
			} else {
				svc.On("ChangeVisibility", mock.Anything, testRawQueueURL, msg.ReceiptHandle, tt.visibility).Return(nil).Once()
			}

			log, records := newRecordingLogger()
			q, err := queue.NewRawQueue(svc, testRawQueueURL, queue.RawHandlerFunc(func(context.Context, string, queue.Message) error {
				return tt.err
			}), queue.WithLogger(log))
			require.NoError(t, err)

			require.NoError(t, consumeOnce(t, q))

			logged := messageRecords(records())
			require.Len(t, logged, 1)
			assert.Equal(t, tt.logMessage, logged[0].Message)
			_, hasTaskName := logged[0].Attrs["task_name"]
			assert.False(t, hasTaskName)
		})
	}
}

func TestRawQueue_AddMessageTransportFailure(t *testing.T) {
	t.Parallel()

	svc := queue.NewMemoryService()
	q, err := queue.NewRawQueue(svc, testRawQueueURL, queue.RawHandlerFunc(func(context.Context, string, queue.Message) error {
		return nil
	}))
	require.NoError(t, err)

	_, err = q.AddMessage(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, queue.ErrTransport)
	assert.ErrorIs(t, err, queue.ErrQueueNotFound)
}
