package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
)

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	Category   *string
	IsFeatured *bool
	// IncludeInactive is set only for administrative listings.
	IncludeInactive bool
	Limit           int
	Offset          int
}

// TemplateStore defines persistence for the template catalog.
type TemplateStore interface {
	Create(ctx context.Context, tpl *domain.Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error)
	// List orders featured templates first, then by usage count.
	List(ctx context.Context, filter TemplateFilter) ([]*domain.Template, int, error)
	Update(ctx context.Context, tpl *domain.Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IncrementUsage bumps usage_count of an active template. Returns
	// ErrTemplateNotFound when the template is missing or inactive.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	WithTx(tx *sql.Tx) TemplateStore
}
