package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockJob runs fn on Execute.
type mockJob struct {
	id uuid.UUID
	fn func(ctx context.Context) error
}

func newMockJob(fn func(ctx context.Context) error) *mockJob {
	return &mockJob{id: uuid.New(), fn: fn}
}

func (j *mockJob) ID() uuid.UUID { return j.id }
func (j *mockJob) Type() string { return "mock" }
func (j *mockJob) Execute(ctx context.Context) error {
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx)
}

func TestQueue_EnqueueAndClose(t *testing.T) {
	q := NewQueue(2, setupTestLogger())

	require.NoError(t, q.Enqueue(newMockJob(nil)))
	require.NoError(t, q.Enqueue(newMockJob(nil)))

	err := q.Enqueue(newMockJob(nil))
	assert.ErrorIs(t, err, ErrQueueFull)

	q.Close()
	q.Close()
	assert.ErrorIs(t, q.Enqueue(newMockJob(nil)), ErrQueueClosed)

	// Jobs queued before Close are still delivered.
	count := 0
	for range q.GetChannel() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestQueue_ConcurrentEnqueueAndClose(t *testing.T) {
	q := NewQueue(1000, setupTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Enqueue(newMockJob(nil))
			if err != nil {
				assert.ErrorIs(t, err, ErrQueueClosed)
			}
		}()
	}
	q.Close()
	wg.Wait()
}

func TestNewWorkerPool_Defaults(t *testing.T) {
	q := NewQueue(1, nil)

	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 0}, setupTestLogger())
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(q, DefaultWorkerPoolConfig(), nil)
	assert.Equal(t, 2, pool.workerCount)
	assert.Equal(t, time.Minute, pool.jobTimeout)

	assert.Panics(t, func() { NewWorkerPool(nil, DefaultWorkerPoolConfig(), nil) })
}

func TestWorkerPool_ProcessesAndDrains(t *testing.T) {
	q := NewQueue(20, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 3}, setupTestLogger())

	var executed atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(newMockJob(func(ctx context.Context) error {
			executed.Add(1)
			return nil
		})))
	}

	pool.Start()
	pool.Start()
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Stop(ctx))

	assert.Equal(t, int32(10), executed.Load())
}

func TestWorkerPool_ErrorHandler(t *testing.T) {
	q := NewQueue(5, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	jobErr := errors.New("smtp unavailable")
	var (
		mu     sync.Mutex
		failed []error
	)
	pool.SetErrorHandler(func(job Job, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, err)
	})

	require.NoError(t, q.Enqueue(newMockJob(func(ctx context.Context) error { return jobErr })))
	require.NoError(t, q.Enqueue(newMockJob(func(ctx context.Context) error { panic("boom") })))
	require.NoError(t, q.Enqueue(newMockJob(nil)))

	pool.Start()
	q.Close()
	require.NoError(t, pool.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 2)
	assert.ErrorIs(t, failed[0], jobErr)
	assert.Contains(t, failed[1].Error(), "panicked")
}

func TestWorkerPool_StopDeadlineCancelsJobs(t *testing.T) {
	q := NewQueue(5, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	started := make(chan struct{})
	require.NoError(t, q.Enqueue(newMockJob(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})))

	pool.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := pool.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerPool_JobTimeout(t *testing.T) {
	q := NewQueue(1, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1, JobTimeout: 20 * time.Millisecond}, setupTestLogger())

	var gotErr atomic.Value
	pool.SetErrorHandler(func(job Job, err error) { gotErr.Store(err) })

	require.NoError(t, q.Enqueue(newMockJob(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))

	pool.Start()
	q.Close()
	require.NoError(t, pool.Stop(context.Background()))

	err, _ := gotErr.Load().(error)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
