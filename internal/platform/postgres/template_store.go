package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/store"
)

const templateColumns = `id, name, description, category, tags, preview_url, thumbnail_url,
	style_config, default_duration, usage_count, rating, is_active, is_featured, created_at, updated_at`

// PostgresTemplateStore implements store.TemplateStore on PostgreSQL.
type PostgresTemplateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TemplateStore = (*PostgresTemplateStore)(nil)

// NewPostgresTemplateStore creates a template store.
func NewPostgresTemplateStore(db store.DBTX, logger *slog.Logger) *PostgresTemplateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTemplateStore{
		db:     db,
		logger: logger.With(slog.String("component", "template_store")),
	}
}

// WithTx implements store.TemplateStore.
func (s *PostgresTemplateStore) WithTx(tx *sql.Tx) store.TemplateStore {
	return &PostgresTemplateStore{db: tx, logger: s.logger}
}

// styleConfigArg renders the JSON column as text so the driver sends it as
// a jsonb literal rather than bytea.
func styleConfigArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Create implements store.TemplateStore.
func (s *PostgresTemplateStore) Create(ctx context.Context, tpl *domain.Template) error {
	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13, $14, $15)`,
		tpl.ID, tpl.Name, tpl.Description, tpl.Category, tpl.Tags, tpl.PreviewURL, tpl.ThumbnailURL,
		styleConfigArg(tpl.StyleConfig), tpl.DefaultDuration, tpl.UsageCount, tpl.Rating,
		tpl.IsActive, tpl.IsFeatured, tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create template",
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.TemplateStore.
func (s *PostgresTemplateStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	tpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTemplateNotFound
		}
		return nil, MapError(err)
	}
	return tpl, nil
}

// List implements store.TemplateStore.
func (s *PostgresTemplateStore) List(
	ctx context.Context,
	filter store.TemplateFilter,
) ([]*domain.Template, int, error) {
	var conds []string
	var args []any
	if !filter.IncludeInactive {
		conds = append(conds, "is_active = TRUE")
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.IsFeatured != nil {
		args = append(args, *filter.IsFeatured)
		conds = append(conds, fmt.Sprintf("is_featured = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates `+where, args...).Scan(&total); err != nil {
		return nil, 0, MapError(err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM templates %s
		ORDER BY is_featured DESC, usage_count DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		templateColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list templates",
			slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var templates []*domain.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, MapError(err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}
	return templates, total, nil
}

// Update implements store.TemplateStore.
func (s *PostgresTemplateStore) Update(ctx context.Context, tpl *domain.Template) error {
	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET name = $1, description = $2, category = $3, tags = $4, preview_url = $5,
			thumbnail_url = $6, style_config = $7::jsonb, default_duration = $8, rating = $9,
			is_active = $10, is_featured = $11, updated_at = $12
		WHERE id = $13`,
		tpl.Name, tpl.Description, tpl.Category, tpl.Tags, tpl.PreviewURL, tpl.ThumbnailURL,
		styleConfigArg(tpl.StyleConfig), tpl.DefaultDuration, tpl.Rating, tpl.IsActive,
		tpl.IsFeatured, tpl.UpdatedAt, tpl.ID,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTemplateNotFound)
}

// Delete implements store.TemplateStore.
func (s *PostgresTemplateStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTemplateNotFound)
}

// IncrementUsage implements store.TemplateStore.
func (s *PostgresTemplateStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE templates SET usage_count = usage_count + 1 WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTemplateNotFound)
}

func scanTemplate(row rowScanner) (*domain.Template, error) {
	var t domain.Template
	var style []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Category, &t.Tags, &t.PreviewURL, &t.ThumbnailURL,
		&style, &t.DefaultDuration, &t.UsageCount, &t.Rating, &t.IsActive, &t.IsFeatured,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(style) > 0 {
		t.StyleConfig = style
	}
	return &t, nil
}
