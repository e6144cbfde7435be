package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecoverer struct {
	tasks []Task
	err   error
}

func (s *stubRecoverer) RecoverTasks(context.Context) ([]Task, error) {
	return s.tasks, s.err
}

func TestTaskRunnerRunsSubmittedTask(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 2, QueueSize: 4}, nil, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	done := make(chan struct{})
	task := NewMockTask()
	task.ExecuteFn = func(context.Context) error { close(done); return nil }

	require.NoError(t, runner.Submit(context.Background(), task))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	assert.Eventually(t, func() bool { return !runner.InFlight(task.ID()) }, time.Second, 5*time.Millisecond)
}

func TestTaskRunnerRejectsDuplicates(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 4}, nil, setupTestLogger())

	task := NewMockTask()
	require.NoError(t, runner.Submit(context.Background(), task))

	again := &MockTask{TaskID: task.ID(), TaskType: task.Type(), ExecuteFn: task.ExecuteFn}
	err := runner.Submit(context.Background(), again)
	assert.ErrorIs(t, err, ErrDuplicateTask)
	assert.True(t, runner.InFlight(task.ID()))
}

func TestTaskRunnerQueueFull(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, nil, setupTestLogger())

	require.NoError(t, runner.Submit(context.Background(), NewMockTask()))
	overflow := NewMockTask()
	err := runner.Submit(context.Background(), overflow)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.False(t, runner.InFlight(overflow.ID()), "a rejected task frees its slot")
}

func TestTaskRunnerCancel(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, nil, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	started := make(chan struct{})
	result := make(chan error, 1)
	task := NewMockTask()
	task.ExecuteFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		result <- ctx.Err()
		return nil
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	<-started

	assert.True(t, runner.Cancel(task.ID()))
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled")
	}
	assert.False(t, runner.Cancel(uuid.New()), "unknown IDs report false")
}

func TestTaskRunnerCancelIsolated(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 2, QueueSize: 2}, nil, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	release := make(chan struct{})
	var survivorErr error

	victim := NewMockTask()
	victim.ExecuteFn = func(ctx context.Context) error {
		wg.Done()
		<-ctx.Done()
		return nil
	}
	survivor := NewMockTask()
	survivor.ExecuteFn = func(ctx context.Context) error {
		wg.Done()
		<-release
		survivorErr = ctx.Err()
		return nil
	}
	require.NoError(t, runner.Submit(context.Background(), victim))
	require.NoError(t, runner.Submit(context.Background(), survivor))
	waitTimeout(t, &wg, time.Second)

	runner.Cancel(victim.ID())
	assert.Eventually(t, func() bool { return !runner.InFlight(victim.ID()) }, time.Second, 5*time.Millisecond)

	close(release)
	assert.Eventually(t, func() bool { return !runner.InFlight(survivor.ID()) }, time.Second, 5*time.Millisecond)
	assert.NoError(t, survivorErr)
}

func TestTaskRunnerRecover(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	ran := map[uuid.UUID]bool{}
	newTask := func() *MockTask {
		task := NewMockTask()
		task.ExecuteFn = func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			ran[task.TaskID] = true
			return nil
		}
		return task
	}
	a, b := newTask(), newTask()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 2, QueueSize: 4}, &stubRecoverer{tasks: []Task{a, b}}, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran[a.ID()] && ran[b.ID()]
	}, time.Second, 5*time.Millisecond)
}

func TestTaskRunnerRecoverBacklog(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	var ran atomic.Int32
	tasks := make([]Task, 5)
	for i := range tasks {
		task := NewMockTask()
		task.ExecuteFn = func(context.Context) error {
			<-gate
			ran.Add(1)
			return nil
		}
		tasks[i] = task
	}

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, &stubRecoverer{tasks: tasks}, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	close(gate)
	assert.Eventually(t, func() bool { return ran.Load() == int32(len(tasks)) },
		2*time.Second, 5*time.Millisecond, "overflowing recovered tasks run once slots free up")
}

func TestTaskRunnerStopWithRecoverBacklog(t *testing.T) {
	t.Parallel()

	tasks := make([]Task, 4)
	for i := range tasks {
		task := NewMockTask()
		task.ExecuteFn = func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}
		tasks[i] = task
	}

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, &stubRecoverer{tasks: tasks}, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))

	stopped := make(chan struct{})
	go func() {
		runner.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on the recovery backlog")
	}
}

func TestTaskRunnerRecoverError(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(DefaultTaskRunnerConfig(), &stubRecoverer{err: errors.New("db down")}, setupTestLogger())
	defer runner.Stop()

	assert.Error(t, runner.Start(context.Background()))
}

func TestTaskRunnerStop(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 2}, nil, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))

	started := make(chan struct{})
	task := NewMockTask()
	task.ExecuteFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	<-started

	runner.Stop()
	assert.ErrorIs(t, runner.Submit(context.Background(), NewMockTask()), ErrRunnerStopped)
}

func TestTaskRunnerErrorHandler(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, nil, setupTestLogger())
	got := make(chan error, 1)
	runner.SetErrorHandler(func(_ Task, err error) { got <- err })
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	task := NewMockTask()
	task.ExecuteFn = func(context.Context) error { return ErrProviderTimeout }
	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case err := <-got:
		assert.ErrorIs(t, err, ErrProviderTimeout)
	case <-time.After(time.Second):
		t.Fatal("error handler not called")
	}
}
