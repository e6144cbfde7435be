package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/events"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// Listing page sizes.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TaskCanceller stops an in-flight drive.
type TaskCanceller interface {
	Cancel(id uuid.UUID) bool
}

// CreateVideoTaskRequest is a user's request for a new video.
type CreateVideoTaskRequest struct {
	Prompt          string
	VideoStyle      *string
	DurationSeconds int
	AspectRatio     domain.AspectRatio
	TemplateID      *uuid.UUID
}

// ListVideoTasksQuery selects one page of a user's tasks. Page is 1-based.
type ListVideoTasksQuery struct {
	Status   *domain.VideoTaskStatus
	Page     int
	PageSize int
}

// VideoTaskPage is one page of tasks, newest first.
type VideoTaskPage struct {
	Tasks    []*domain.VideoTask
	Total    int
	Page     int
	PageSize int
}

// VideoService manages the lifecycle of a user's video tasks.
type VideoService interface {
	// CreateTask admits the request against the user's quota, stores a
	// PENDING task, consumes one unit of quota and schedules the drive.
	CreateTask(ctx context.Context, userID uuid.UUID, req CreateVideoTaskRequest) (*domain.VideoTask, error)

	// GetTask returns a task owned by userID.
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.VideoTask, error)

	// ListTasks pages through a user's tasks.
	ListTasks(ctx context.Context, userID uuid.UUID, q ListVideoTasksQuery) (*VideoTaskPage, error)

	// DeleteTask removes a task owned by userID and stops its drive.
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
}

type videoServiceImpl struct {
	db           *sql.DB
	users        store.UserStore
	tasks        store.VideoTaskStore
	templates    store.TemplateStore
	gate         *quota.Gate
	emitter      events.EventEmitter
	canceller    TaskCanceller
	providerName string
	logger       *slog.Logger
}

// VideoServiceDeps are the collaborators of the video service.
type VideoServiceDeps struct {
	DB           *sql.DB
	Users        store.UserStore
	Tasks        store.VideoTaskStore
	Templates    store.TemplateStore
	Gate         *quota.Gate
	Emitter      events.EventEmitter
	Canceller    TaskCanceller
	ProviderName string
}

// NewVideoService creates a VideoService. Every dependency is required.
func NewVideoService(deps VideoServiceDeps, logger *slog.Logger) (VideoService, error) {
	switch {
	case deps.DB == nil:
		return nil, errors.New("db cannot be nil")
	case deps.Users == nil:
		return nil, errors.New("user store cannot be nil")
	case deps.Tasks == nil:
		return nil, errors.New("video task store cannot be nil")
	case deps.Templates == nil:
		return nil, errors.New("template store cannot be nil")
	case deps.Gate == nil:
		return nil, errors.New("quota gate cannot be nil")
	case deps.Emitter == nil:
		return nil, errors.New("event emitter cannot be nil")
	case deps.Canceller == nil:
		return nil, errors.New("task canceller cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &videoServiceImpl{
		db:           deps.DB,
		users:        deps.Users,
		tasks:        deps.Tasks,
		templates:    deps.Templates,
		gate:         deps.Gate,
		emitter:      deps.Emitter,
		canceller:    deps.Canceller,
		providerName: deps.ProviderName,
		logger:       logger.With("component", "video_service"),
	}, nil
}

func (s *videoServiceImpl) CreateTask(
	ctx context.Context,
	userID uuid.UUID,
	req CreateVideoTaskRequest,
) (*domain.VideoTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, newServiceError("video", "create_task", "failed to load user", err)
	}
	if !user.IsActive() {
		return nil, domain.ErrUserNotActive
	}

	admitted, err := s.gate.Admit(ctx, userID)
	if err != nil {
		return nil, newServiceError("video", "create_task", "quota check failed", err)
	}
	if !admitted {
		return nil, quota.ErrQuotaExceeded
	}

	if req.TemplateID != nil && req.DurationSeconds == 0 {
		tpl, err := s.templates.GetByID(ctx, *req.TemplateID)
		if errors.Is(err, store.ErrTemplateNotFound) || (err == nil && !tpl.IsActive) {
			return nil, domain.ErrTemplateNotAvailable
		}
		if err != nil {
			return nil, newServiceError("video", "create_task", "failed to load template", err)
		}
		req.DurationSeconds = tpl.DefaultDuration
	}

	vt, err := domain.NewVideoTask(userID, domain.VideoTaskParams{
		Prompt:          req.Prompt,
		VideoStyle:      req.VideoStyle,
		DurationSeconds: req.DurationSeconds,
		AspectRatio:     req.AspectRatio,
		TemplateID:      req.TemplateID,
		Provider:        s.providerName,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if vt.TemplateID != nil {
			if err := s.templates.WithTx(tx).IncrementUsage(ctx, *vt.TemplateID); err != nil {
				if errors.Is(err, store.ErrTemplateNotFound) {
					return domain.ErrTemplateNotAvailable
				}
				return err
			}
		}
		if err := s.tasks.WithTx(tx).Create(ctx, vt); err != nil {
			return err
		}
		consumed, err := s.gate.WithTx(tx).Consume(ctx, userID, 1)
		if err != nil {
			return err
		}
		if !consumed {
			return quota.ErrQuotaExceeded
		}
		return nil
	})
	if err != nil {
		return nil, newServiceError("video", "create_task", "failed to store task", err)
	}

	event, err := events.NewVideoGenerationEvent(vt.ID, userID)
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Error("failed to schedule video task",
			"error", err,
			"video_task_id", vt.ID,
			"user_id", userID)
		if failErr := vt.Fail(ErrSchedulerBusy.Error(), vt.UpdatedAt); failErr == nil {
			if updErr := s.tasks.Update(ctx, vt); updErr != nil {
				log.Error("failed to mark unscheduled task failed", "error", updErr, "video_task_id", vt.ID)
			}
		}
		return nil, ErrSchedulerBusy
	}

	log.Info("video task created",
		"video_task_id", vt.ID,
		"user_id", userID,
		"duration_seconds", vt.DurationSeconds,
		"aspect_ratio", vt.AspectRatio)
	return vt, nil
}

func (s *videoServiceImpl) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.VideoTask, error) {
	vt, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, newServiceError("video", "get_task", "failed to load task", err)
	}
	if vt.UserID != userID {
		return nil, store.ErrVideoTaskNotFound
	}
	return vt, nil
}

func (s *videoServiceImpl) ListTasks(
	ctx context.Context,
	userID uuid.UUID,
	q ListVideoTasksQuery,
) (*VideoTaskPage, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	if q.Status != nil && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidTaskStatus)
	}

	tasks, total, err := s.tasks.List(ctx, store.VideoTaskFilter{
		UserID: userID,
		Status: q.Status,
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, newServiceError("video", "list_tasks", "failed to list tasks", err)
	}
	return &VideoTaskPage{Tasks: tasks, Total: total, Page: page, PageSize: size}, nil
}

func (s *videoServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.tasks.Delete(ctx, taskID, userID); err != nil {
		return newServiceError("video", "delete_task", "failed to delete task", err)
	}
	cancelled := s.canceller.Cancel(taskID)
	logger.FromContextOrDefault(ctx, s.logger).Info("video task deleted",
		"video_task_id", taskID,
		"user_id", userID,
		"drive_cancelled", cancelled)
	return nil
}

// normalizePage applies defaults and bounds to 1-based paging parameters.
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
