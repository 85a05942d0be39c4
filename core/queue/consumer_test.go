package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sqsx/core/queue"
)

func newMemoryTaskQueue(t *testing.T, opts ...queue.Option) (*queue.MemoryService, *queue.TaskQueue) {
	t.Helper()

	svc := queue.NewMemoryService()
	svc.CreateQueue(testQueueURL)

	q, err := queue.NewTaskQueue(svc, testQueueURL, opts...)
	require.NoError(t, err)
	return svc, q
}

// runConsume starts Consume in the background and waits until it is running.
func runConsume(t *testing.T, ctx context.Context, q interface {
	Consume(context.Context, ...queue.ConsumeOption) error
	Stats() queue.Stats
}, opts ...queue.ConsumeOption) <-chan error {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, append([]queue.ConsumeOption{queue.WithSignals()}, opts...)...)
	}()

	// a short run may already be over
	require.Eventually(t, func() bool { return q.Stats().IsRunning || len(done) > 0 }, time.Second, time.Millisecond)
	return done
}

func waitConsume(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("consume did not return")
		return nil
	}
}

func TestConsume_SumTasks(t *testing.T) {
	t.Parallel()

	svc, q := newMemoryTaskQueue(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		total float64
	)
	require.NoError(t, q.AddTaskHandlerFunc("sum_task", func(_ context.Context, _ queue.TaskContext, kwargs map[string]any) error {
		mu.Lock()
		defer mu.Unlock()
		for _, v := range kwargs {
			total += v.(float64)
		}
		return nil
	}))

	for range 2 {
		_, err := q.AddTask(ctx, "sum_task", map[string]any{"a": 1, "b": 2, "c": 3})
		require.NoError(t, err)
	}

	err := q.Consume(ctx,
		queue.WithMaxMessages(2),
		queue.WithMaxThreads(2),
		queue.WithRunForever(false),
		queue.WithSignals())
	require.NoError(t, err)

	assert.Equal(t, float64(12), total)
	assert.Equal(t, 0, svc.Len(testQueueURL))
	assert.Equal(t, int64(2), q.Stats().MessagesAcked)
}

func TestConsume_FailedTaskIsHidden(t *testing.T) {
	t.Parallel()

	svc, q := newMemoryTaskQueue(t, queue.WithMinBackoffSeconds(45))
	ctx := context.Background()

	require.NoError(t, q.AddTaskHandlerFunc("fail_task", func(context.Context, queue.TaskContext, map[string]any) error {
		return errors.New("boom")
	}))

	res, err := q.AddTask(ctx, "fail_task", nil)
	require.NoError(t, err)

	require.NoError(t, q.Consume(ctx, queue.WithRunForever(false), queue.WithSignals()))

	assert.Equal(t, 1, svc.Len(testQueueURL))
	assert.Equal(t, 0, svc.VisibleLen(testQueueURL))
	assert.Equal(t, []int{45}, svc.VisibilityChanges(testQueueURL, res.MessageID))
}

func TestConsume_RedeliveryIncreasesRetryCount(t *testing.T) {
	t.Parallel()

	_, q := newMemoryTaskQueue(t, queue.WithMinBackoffSeconds(0))
	ctx := context.Background()

	var retries []int
	require.NoError(t, q.AddTaskHandlerFunc("flaky_task", func(_ context.Context, tc queue.TaskContext, _ map[string]any) error {
		retries = append(retries, tc.Message.RetryCount())
		if len(retries) < 3 {
			return errors.New("not yet")
		}
		q.Stop()
		return nil
	}))

	_, err := q.AddTask(ctx, "flaky_task", nil)
	require.NoError(t, err)

	done := runConsume(t, ctx, q, queue.WithPollingWaitSeconds(0), queue.WithWaitSeconds(0))
	require.NoError(t, waitConsume(t, done))

	assert.Equal(t, []int{0, 1, 2}, retries)
	assert.Equal(t, queue.Stats{MessagesAcked: 1, MessagesNacked: 2}, q.Stats())
}

func TestConsume_ContextCancelCompletesBatch(t *testing.T) {
	t.Parallel()

	svc, q := newMemoryTaskQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		release   = make(chan struct{})
		processed atomic.Int32
		ctxErrs   atomic.Int32
	)

	require.NoError(t, q.AddTaskHandlerFunc("slow_task", func(ctx context.Context, _ queue.TaskContext, _ map[string]any) error {
		<-release
		if ctx.Err() != nil {
			ctxErrs.Add(1)
		}
		processed.Add(1)
		return nil
	}))

	for range 4 {
		_, err := q.AddTask(context.Background(), "slow_task", nil)
		require.NoError(t, err)
	}

	done := runConsume(t, ctx, q, queue.WithMaxMessages(4), queue.WithMaxThreads(2))

	require.Eventually(t, func() bool { return q.Stats().ActiveMessages == 2 }, time.Second, time.Millisecond)
	cancel()

	// the batch keeps running after the stop request
	select {
	case <-done:
		t.Fatal("consume returned before the batch was settled")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, waitConsume(t, done))

	assert.Equal(t, int32(4), processed.Load())
	assert.Equal(t, int32(0), ctxErrs.Load())
	assert.Equal(t, 0, svc.Len(testQueueURL))
	assert.Equal(t, int64(4), q.Stats().MessagesAcked)
	assert.False(t, q.Stats().IsRunning)
}

func TestConsume_StopInterruptsIdleWait(t *testing.T) {
	t.Parallel()

	_, q := newMemoryTaskQueue(t)

	done := runConsume(t, context.Background(), q, queue.WithPollingWaitSeconds(0), queue.WithWaitSeconds(60))

	start := time.Now()
	q.Stop()
	q.Stop()

	require.NoError(t, waitConsume(t, done))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConsume_AlreadyConsuming(t *testing.T) {
	t.Parallel()

	_, q := newMemoryTaskQueue(t)

	done := runConsume(t, context.Background(), q, queue.WithPollingWaitSeconds(0), queue.WithWaitSeconds(60))

	err := q.Consume(context.Background(), queue.WithSignals())
	assert.ErrorIs(t, err, queue.ErrAlreadyConsuming)

	q.Stop()
	require.NoError(t, waitConsume(t, done))

	// a stopped queue can consume again
	require.NoError(t, q.Consume(context.Background(),
		queue.WithRunForever(false), queue.WithSignals(), queue.WithPollingWaitSeconds(0), queue.WithWaitSeconds(0)))
}

func TestConsume_Healthcheck(t *testing.T) {
	t.Parallel()

	_, q := newMemoryTaskQueue(t)
	ctx := context.Background()

	err := q.Healthcheck(ctx)
	assert.ErrorIs(t, err, queue.ErrHealthcheckFailed)
	assert.ErrorIs(t, err, queue.ErrConsumerNotRunning)

	release := make(chan struct{})
	require.NoError(t, q.AddTaskHandlerFunc("slow_task", func(context.Context, queue.TaskContext, map[string]any) error {
		<-release
		return nil
	}))

	done := runConsume(t, ctx, q, queue.WithPollingWaitSeconds(0), queue.WithWaitSeconds(0))
	assert.NoError(t, q.Healthcheck(ctx))

	_, err = q.AddTask(ctx, "slow_task", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return q.Stats().ActiveMessages == 1 }, time.Second, 5*time.Millisecond)
	err = q.Healthcheck(ctx)
	assert.ErrorIs(t, err, queue.ErrHealthcheckFailed)
	assert.ErrorIs(t, err, queue.ErrConsumerOverloaded)

	q.Stop()
	close(release)
	require.NoError(t, waitConsume(t, done))
	assert.Equal(t, int64(1), q.Stats().MessagesAcked)
}

func TestConsume_ReceiveFailure(t *testing.T) {
	t.Parallel()

	svc := queue.NewMemoryService()
	q, err := queue.NewTaskQueue(svc, testQueueURL)
	require.NoError(t, err)

	// the queue was never created
	err = q.Consume(context.Background(), queue.WithSignals())
	assert.ErrorIs(t, err, queue.ErrTransport)
	assert.ErrorIs(t, err, queue.ErrQueueNotFound)
}
