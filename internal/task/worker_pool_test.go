package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(10, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 5}, setupTestLogger())
	assert.Equal(t, 5, pool.workerCount)
	assert.Nil(t, pool.errorHandler)

	pool = NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 0}, setupTestLogger())
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(q, WorkerPoolConfig{WorkerCount: -5}, setupTestLogger())
	assert.Equal(t, 1, pool.workerCount)
}

func TestWorkerPoolProcessesTasks(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(10, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 3}, setupTestLogger())

	var mu sync.Mutex
	var failed []error
	pool.SetErrorHandler(func(_ Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, err)
	})
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	wg.Add(3)

	ok := NewMockTask()
	ok.ExecuteFn = func(context.Context) error { wg.Done(); return nil }
	bad := NewMockTask()
	bad.ExecuteFn = func(context.Context) error { defer wg.Done(); return errors.New("boom") }
	panicky := NewMockTask()
	panicky.ExecuteFn = func(context.Context) error { defer wg.Done(); panic("unexpected") }

	require.NoError(t, q.Enqueue(ok))
	require.NoError(t, q.Enqueue(bad))
	require.NoError(t, q.Enqueue(panicky))

	waitTimeout(t, &wg, time.Second)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	var sawPanic bool
	for _, err := range failed {
		if errors.Is(err, ErrInternal) {
			sawPanic = true
		}
	}
	assert.True(t, sawPanic, "a panic is reported as an internal error")
}

func TestWorkerPoolStopCancelsTasks(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(1, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()

	started := make(chan struct{})
	blocking := NewMockTask()
	blocking.ExecuteFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, q.Enqueue(blocking))
	<-started

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for tasks")
	}
}
