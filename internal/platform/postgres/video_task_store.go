package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/store"
)

const videoTaskColumns = `id, user_id, prompt, video_style, video_duration, aspect_ratio, template_id,
	provider, provider_task_id, video_url, thumbnail_url, video_duration_actual, video_size,
	progress, status, error_message, created_at, updated_at, completed_at`

// PostgresVideoTaskStore implements store.VideoTaskStore on PostgreSQL.
type PostgresVideoTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.VideoTaskStore = (*PostgresVideoTaskStore)(nil)

// NewPostgresVideoTaskStore creates a video task store.
// If logger is nil, a default logger will be used.
func NewPostgresVideoTaskStore(db store.DBTX, logger *slog.Logger) *PostgresVideoTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresVideoTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "video_task_store")),
	}
}

// WithTx implements store.VideoTaskStore.
func (s *PostgresVideoTaskStore) WithTx(tx *sql.Tx) store.VideoTaskStore {
	return &PostgresVideoTaskStore{db: tx, logger: s.logger}
}

// Create implements store.VideoTaskStore.
func (s *PostgresVideoTaskStore) Create(ctx context.Context, task *domain.VideoTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("video task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_tasks (`+videoTaskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		task.ID, task.UserID, task.Prompt, task.VideoStyle, task.DurationSeconds, string(task.AspectRatio),
		task.TemplateID, task.Provider, task.ProviderTaskID, task.VideoURL, task.ThumbnailURL,
		task.ActualDurationSeconds, task.VideoSizeBytes, task.Progress, string(task.Status),
		task.ErrorMessage, task.CreatedAt, task.UpdatedAt, task.CompletedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during video task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()))
			return fmt.Errorf("%w: unknown user or template", store.ErrInvalidEntity)
		}
		log.Error("failed to create video task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("video task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetByID implements store.VideoTaskStore.
func (s *PostgresVideoTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.VideoTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoTaskColumns+` FROM video_tasks WHERE id = $1`, id)
	task, err := scanVideoTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVideoTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get video task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}
	return task, nil
}

// Update implements store.VideoTaskStore. The status guard in the WHERE
// clause keeps terminal rows immutable even when two writers race.
func (s *PostgresVideoTaskStore) Update(ctx context.Context, task *domain.VideoTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE video_tasks
		SET provider_task_id = $1, video_url = $2, thumbnail_url = $3, video_duration_actual = $4,
			video_size = $5, progress = $6, status = $7, error_message = $8,
			updated_at = $9, completed_at = $10
		WHERE id = $11 AND status NOT IN ('completed', 'failed')`,
		task.ProviderTaskID, task.VideoURL, task.ThumbnailURL, task.ActualDurationSeconds,
		task.VideoSizeBytes, task.Progress, string(task.Status), task.ErrorMessage,
		task.UpdatedAt, task.CompletedAt, task.ID,
	)
	if err != nil {
		log.Error("failed to update video task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Distinguish a deleted row from one that was already finalized.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM video_tasks WHERE id = $1)`, task.ID,
	).Scan(&exists); err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrVideoTaskNotFound
	}
	return store.ErrStaleTask
}

// List implements store.VideoTaskStore.
func (s *PostgresVideoTaskStore) List(
	ctx context.Context,
	filter store.VideoTaskFilter,
) ([]*domain.VideoTask, int, error) {
	where := `WHERE user_id = $1`
	args := []any{filter.UserID}
	if filter.Status != nil {
		where += ` AND status = $2`
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM video_tasks `+where, args...).Scan(&total); err != nil {
		return nil, 0, MapError(err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM video_tasks %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		videoTaskColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListUnfinished implements store.VideoTaskStore.
func (s *PostgresVideoTaskStore) ListUnfinished(ctx context.Context) ([]*domain.VideoTask, error) {
	return s.queryTasks(ctx, `SELECT `+videoTaskColumns+` FROM video_tasks
		WHERE status IN ('pending', 'processing') ORDER BY created_at ASC`)
}

// Delete implements store.VideoTaskStore.
func (s *PostgresVideoTaskStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM video_tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete video task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrVideoTaskNotFound)
}

func (s *PostgresVideoTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.VideoTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query video tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.VideoTask
	for rows.Next() {
		task, err := scanVideoTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideoTask(row rowScanner) (*domain.VideoTask, error) {
	var t domain.VideoTask
	var ratio, status string
	err := row.Scan(
		&t.ID, &t.UserID, &t.Prompt, &t.VideoStyle, &t.DurationSeconds, &ratio, &t.TemplateID,
		&t.Provider, &t.ProviderTaskID, &t.VideoURL, &t.ThumbnailURL, &t.ActualDurationSeconds,
		&t.VideoSizeBytes, &t.Progress, &status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.AspectRatio = domain.AspectRatio(ratio)
	t.Status = domain.VideoTaskStatus(status)
	return &t, nil
}
