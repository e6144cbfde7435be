package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/events"
)

// TaskTypeVideoGeneration identifies VideoGenerationTask.
const TaskTypeVideoGeneration = events.TypeVideoGeneration

// Errors returned by the runner and by task drives.
var (
	ErrQueueClosed     = errors.New("task queue is closed")
	ErrQueueFull       = errors.New("task queue is full")
	ErrDuplicateTask   = errors.New("task is already scheduled")
	ErrRunnerStopped   = errors.New("task runner is stopped")
	ErrProviderTimeout = errors.New("video provider did not finish in time")
	ErrProviderFailed  = errors.New("video provider reported failure")
	ErrInternal        = errors.New("internal error during video generation")
)

// Task is a unit of background work.
type Task interface {
	// ID identifies the task. For video tasks it is the stored task's ID.
	ID() uuid.UUID

	// Type returns the task type identifier.
	Type() string

	// Execute runs the task until it finishes or ctx is cancelled.
	Execute(ctx context.Context) error
}

// TaskQueueReader gives workers read access to queued tasks.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter accepts tasks for processing.
type TaskQueueWriter interface {
	// Enqueue adds a task without blocking. It returns ErrQueueFull or
	// ErrQueueClosed when the task cannot be accepted.
	Enqueue(task Task) error
	Close()
}
