package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
)

// VideoTaskFilter narrows List results.
type VideoTaskFilter struct {
	UserID uuid.UUID
	Status *domain.VideoTaskStatus
	Limit  int
	Offset int
}

// VideoTaskStore defines persistence for video generation tasks.
type VideoTaskStore interface {
	// Create inserts a new task.
	Create(ctx context.Context, task *domain.VideoTask) error

	// GetByID returns the task or ErrVideoTaskNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VideoTask, error)

	// Update persists the mutable lifecycle fields of task. Rows already in a
	// terminal state are never modified: the call then returns ErrStaleTask,
	// or ErrVideoTaskNotFound when the row no longer exists.
	Update(ctx context.Context, task *domain.VideoTask) error

	// List returns the filtered page ordered by creation time, newest first,
	// together with the total number of matching rows.
	List(ctx context.Context, filter VideoTaskFilter) ([]*domain.VideoTask, int, error)

	// ListUnfinished returns PENDING and PROCESSING tasks, oldest first.
	ListUnfinished(ctx context.Context) ([]*domain.VideoTask, error)

	// Delete removes a task owned by userID. Returns ErrVideoTaskNotFound
	// when no such task exists for that owner.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// WithTx returns a VideoTaskStore bound to tx.
	WithTx(tx *sql.Tx) VideoTaskStore
}
