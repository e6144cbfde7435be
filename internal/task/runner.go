package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner.
type TaskRunnerConfig struct {
	// WorkerCount bounds how many tasks execute concurrently.
	WorkerCount int

	// QueueSize bounds how many tasks may wait for a worker.
	QueueSize int
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults.
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 16,
		QueueSize:   100,
	}
}

// Recoverer rebuilds tasks left unfinished by a previous process.
type Recoverer interface {
	RecoverTasks(ctx context.Context) ([]Task, error)
}

// TaskRunner schedules tasks onto a worker pool and tracks one cancellable
// context per scheduled task. At most one drive per task ID is in flight.
type TaskRunner struct {
	queue     *TaskQueue
	pool      *WorkerPool
	recoverer Recoverer
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight map[uuid.UUID]context.CancelFunc
	stopped  bool

	backfill sync.WaitGroup
}

// NewTaskRunner creates a runner. recoverer may be nil, in which case
// Start schedules nothing from storage.
func NewTaskRunner(config TaskRunnerConfig, recoverer Recoverer, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		queue:     queue,
		pool:      pool,
		recoverer: recoverer,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		inflight:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// SetErrorHandler sets a callback for failed tasks. It must be called before Start.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Start launches the workers and re-schedules unfinished tasks.
func (r *TaskRunner) Start(ctx context.Context) error {
	r.pool.Start()
	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}
	return nil
}

// Stop cancels every in-flight task and waits for the workers to exit.
// Tasks still queued are dropped; they remain unfinished in storage and
// are picked up by the next Recover.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.backfill.Wait()
	r.queue.Close()
	r.pool.Stop()
}

// Submit schedules task. It returns ErrDuplicateTask when a task with the
// same ID is queued or running, and ErrQueueFull when there is no room.
func (r *TaskRunner) Submit(_ context.Context, task Task) error {
	return r.schedule(task, false)
}

// schedule registers task and enqueues it. With wait set it blocks for a
// queue slot until the runner stops.
func (r *TaskRunner) schedule(task Task, wait bool) error {
	id := task.ID()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRunnerStopped
	}
	if _, exists := r.inflight[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateTask, id)
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.inflight[id] = cancel
	r.mu.Unlock()

	tracked := &trackedTask{Task: task, ctx: ctx, done: func() { r.release(id) }}
	var err error
	if wait {
		err = r.queue.EnqueueWait(r.ctx, tracked)
	} else {
		err = r.queue.Enqueue(tracked)
	}
	if err != nil {
		r.release(id)
		return err
	}
	return nil
}

// Cancel stops the drive of the task with the given ID. It reports whether
// such a task was queued or running.
func (r *TaskRunner) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	cancel, ok := r.inflight[id]
	r.mu.Unlock()
	if ok {
		cancel()
		r.logger.Info("task cancelled", "task_id", id)
	}
	return ok
}

// InFlight reports whether a task with the given ID is queued or running.
func (r *TaskRunner) InFlight(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[id]
	return ok
}

// Recover schedules the tasks returned by the recoverer. Tasks that do not
// fit in the queue are handed to a background backfill that enqueues them
// as workers free up, so none is left unfinished until the next restart.
func (r *TaskRunner) Recover(ctx context.Context) error {
	if r.recoverer == nil {
		return nil
	}
	tasks, err := r.recoverer.RecoverTasks(ctx)
	if err != nil {
		return err
	}

	scheduled := 0
	var backlog []Task
	for _, t := range tasks {
		err := r.Submit(ctx, t)
		switch {
		case err == nil:
			scheduled++
		case errors.Is(err, ErrQueueFull):
			backlog = append(backlog, t)
		default:
			r.logger.Error("failed to reschedule unfinished task",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
		}
	}
	r.logger.Info("recovered unfinished tasks",
		"found", len(tasks),
		"scheduled", scheduled,
		"backlog", len(backlog))

	if len(backlog) > 0 {
		r.mu.Lock()
		if !r.stopped {
			r.backfill.Add(1)
			go r.drainBacklog(backlog)
		}
		r.mu.Unlock()
	}
	return nil
}

func (r *TaskRunner) drainBacklog(backlog []Task) {
	defer r.backfill.Done()
	for i, t := range backlog {
		err := r.schedule(t, true)
		switch {
		case err == nil:
		case errors.Is(err, ErrRunnerStopped) || r.ctx.Err() != nil:
			r.logger.Info("runner stopped with recovered tasks still waiting",
				"remaining", len(backlog)-i)
			return
		default:
			r.logger.Error("failed to reschedule unfinished task",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
		}
	}
	r.logger.Info("recovered backlog scheduled", "count", len(backlog))
}

func (r *TaskRunner) release(id uuid.UUID) {
	r.mu.Lock()
	cancel, ok := r.inflight[id]
	delete(r.inflight, id)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// trackedTask runs a task under its own context and releases its slot in
// the runner when it returns.
type trackedTask struct {
	Task
	ctx  context.Context
	done func()
}

func (t *trackedTask) Execute(context.Context) error {
	defer t.done()
	return t.Task.Execute(t.ctx)
}
