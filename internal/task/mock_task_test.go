package task

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// MockTask is a simple implementation of the Task interface for testing
type MockTask struct {
	TaskID    uuid.UUID
	TaskType  string
	ExecuteFn func(ctx context.Context) error
}

// NewMockTask creates a MockTask whose Execute returns nil.
func NewMockTask() *MockTask {
	return &MockTask{
		TaskID:    uuid.New(),
		TaskType:  "mock_task",
		ExecuteFn: func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID { return t.TaskID }

func (t *MockTask) Type() string { return t.TaskType }

func (t *MockTask) Execute(ctx context.Context) error { return t.ExecuteFn(ctx) }

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
