package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// VideoGenerationTaskFactory builds VideoGenerationTasks that share one set
// of collaborators.
type VideoGenerationTaskFactory struct {
	tasks    store.VideoTaskStore
	provider generation.VideoProvider
	archiver generation.VideoArchiver
	cfg      VideoGenerationConfig
	logger   *slog.Logger
}

var _ Recoverer = (*VideoGenerationTaskFactory)(nil)

// NewVideoGenerationTaskFactory creates a factory. archiver may be nil.
func NewVideoGenerationTaskFactory(
	tasks store.VideoTaskStore,
	provider generation.VideoProvider,
	archiver generation.VideoArchiver,
	cfg VideoGenerationConfig,
	logger *slog.Logger,
) (*VideoGenerationTaskFactory, error) {
	if tasks == nil {
		return nil, errors.New("video task store cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("video provider cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoGenerationTaskFactory{
		tasks:    tasks,
		provider: provider,
		archiver: archiver,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// CreateTask builds a drive for the stored task taskID.
func (f *VideoGenerationTaskFactory) CreateTask(taskID uuid.UUID) (Task, error) {
	return NewVideoGenerationTask(taskID, f.tasks, f.provider, f.archiver, f.cfg, f.logger)
}

// RecoverTasks implements Recoverer: every PENDING or PROCESSING task gets
// a fresh drive. A task that already has a provider ID resumes polling.
func (f *VideoGenerationTaskFactory) RecoverTasks(ctx context.Context) ([]Task, error) {
	unfinished, err := f.tasks.ListUnfinished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished video tasks: %w", err)
	}
	out := make([]Task, 0, len(unfinished))
	for _, vt := range unfinished {
		t, err := f.CreateTask(vt.ID)
		if err != nil {
			f.logger.Error("failed to rebuild video task", "video_task_id", vt.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
