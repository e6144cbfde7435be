package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// ListTemplatesQuery selects one page of the catalog. Page is 1-based.
type ListTemplatesQuery struct {
	Category   *string
	IsFeatured *bool
	// IncludeInactive is honoured only for administrators.
	IncludeInactive bool
	Page            int
	PageSize        int
}

// TemplatePage is one page of templates.
type TemplatePage struct {
	Templates []*domain.Template
	Total     int
	Page      int
	PageSize  int
}

// TemplateInput carries the writable fields of a template. Nil pointers
// leave the current value unchanged on update.
type TemplateInput struct {
	Name            *string
	Description     *string
	Category        *string
	Tags            *string
	PreviewURL      *string
	ThumbnailURL    *string
	StyleConfig     json.RawMessage
	DefaultDuration *int
	Rating          *float64
	IsActive        *bool
	IsFeatured      *bool
}

// TemplateService exposes the template catalog.
type TemplateService interface {
	List(ctx context.Context, q ListTemplatesQuery) (*TemplatePage, error)

	// Get returns an active template. Inactive templates read as not found
	// unless includeInactive is set.
	Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*domain.Template, error)

	Create(ctx context.Context, in TemplateInput) (*domain.Template, error)
	Update(ctx context.Context, id uuid.UUID, in TemplateInput) (*domain.Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type templateServiceImpl struct {
	templates store.TemplateStore
	logger    *slog.Logger
}

// NewTemplateService creates a TemplateService.
func NewTemplateService(templates store.TemplateStore, logger *slog.Logger) (TemplateService, error) {
	if templates == nil {
		return nil, errors.New("template store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &templateServiceImpl{
		templates: templates,
		logger:    logger.With("component", "template_service"),
	}, nil
}

func (s *templateServiceImpl) List(ctx context.Context, q ListTemplatesQuery) (*TemplatePage, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	tpls, total, err := s.templates.List(ctx, store.TemplateFilter{
		Category:        q.Category,
		IsFeatured:      q.IsFeatured,
		IncludeInactive: q.IncludeInactive,
		Limit:           size,
		Offset:          (page - 1) * size,
	})
	if err != nil {
		return nil, newServiceError("template", "list", "failed to list templates", err)
	}
	return &TemplatePage{Templates: tpls, Total: total, Page: page, PageSize: size}, nil
}

func (s *templateServiceImpl) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*domain.Template, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("template", "get", "failed to load template", err)
	}
	if !tpl.IsActive && !includeInactive {
		return nil, store.ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *templateServiceImpl) Create(ctx context.Context, in TemplateInput) (*domain.Template, error) {
	name := ""
	if in.Name != nil {
		name = *in.Name
	}
	tpl, err := domain.NewTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := applyTemplateInput(tpl, in); err != nil {
		return nil, err
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, newServiceError("template", "create", "failed to store template", err)
	}
	s.logger.InfoContext(ctx, "template created", "template_id", tpl.ID, "name", tpl.Name)
	return tpl, nil
}

func (s *templateServiceImpl) Update(ctx context.Context, id uuid.UUID, in TemplateInput) (*domain.Template, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("template", "update", "failed to load template", err)
	}
	if in.Name != nil {
		tpl.Name = *in.Name
	}
	if err := applyTemplateInput(tpl, in); err != nil {
		return nil, err
	}
	tpl.UpdatedAt = time.Now().UTC()
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, newServiceError("template", "update", "failed to store template", err)
	}
	return tpl, nil
}

func (s *templateServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		return newServiceError("template", "delete", "failed to delete template", err)
	}
	s.logger.InfoContext(ctx, "template deleted", "template_id", id)
	return nil
}

func applyTemplateInput(tpl *domain.Template, in TemplateInput) error {
	if in.Description != nil {
		tpl.Description = in.Description
	}
	if in.Category != nil {
		tpl.Category = in.Category
	}
	if in.Tags != nil {
		tpl.Tags = in.Tags
	}
	if in.PreviewURL != nil {
		tpl.PreviewURL = in.PreviewURL
	}
	if in.ThumbnailURL != nil {
		tpl.ThumbnailURL = in.ThumbnailURL
	}
	if len(in.StyleConfig) > 0 {
		tpl.StyleConfig = in.StyleConfig
	}
	if in.DefaultDuration != nil {
		tpl.DefaultDuration = *in.DefaultDuration
	}
	if in.Rating != nil {
		tpl.Rating = *in.Rating
	}
	if in.IsActive != nil {
		tpl.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		tpl.IsFeatured = *in.IsFeatured
	}
	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return nil
}
