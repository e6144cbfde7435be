package domain

import (
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Common validation errors for Template
var (
	ErrEmptyTemplateID      = errors.New("template ID cannot be empty")
	ErrInvalidTemplateName  = errors.New("template name must be between 1 and 100 characters")
	ErrInvalidCategory      = errors.New("template category must be at most 50 characters")
	ErrInvalidTags          = errors.New("template tags must be at most 200 characters")
	ErrInvalidRating        = errors.New("template rating must be between 0 and 5")
	ErrInvalidStyleConfig   = errors.New("template style config must be a JSON object")
	ErrTemplateNotAvailable = errors.New("template is not available")
)

// Template is a reusable preset that a task may reference at creation.
type Template struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	Category        *string         `json:"category,omitempty"`
	Tags            *string         `json:"tags,omitempty"`
	PreviewURL      *string         `json:"preview_url,omitempty"`
	ThumbnailURL    *string         `json:"thumbnail_url,omitempty"`
	StyleConfig     json.RawMessage `json:"style_config,omitempty"`
	DefaultDuration int             `json:"default_duration"`
	UsageCount      int             `json:"usage_count"`
	Rating          float64         `json:"rating"`
	IsActive        bool            `json:"is_active"`
	IsFeatured      bool            `json:"is_featured"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewTemplate creates an active template with defaults applied.
func NewTemplate(name string) (*Template, error) {
	now := time.Now().UTC()
	t := &Template{
		ID:              uuid.New(),
		Name:            name,
		DefaultDuration: DefaultDurationSeconds,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the Template has valid data.
func (t *Template) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTemplateID
	}
	if n := utf8.RuneCountInString(t.Name); n < 1 || n > 100 {
		return ErrInvalidTemplateName
	}
	if t.Category != nil && utf8.RuneCountInString(*t.Category) > 50 {
		return ErrInvalidCategory
	}
	if t.Tags != nil && utf8.RuneCountInString(*t.Tags) > 200 {
		return ErrInvalidTags
	}
	if t.DefaultDuration < MinDurationSeconds || t.DefaultDuration > MaxDurationSeconds {
		return ErrInvalidDuration
	}
	if t.Rating < 0 || t.Rating > 5 {
		return ErrInvalidRating
	}
	if len(t.StyleConfig) > 0 {
		var obj map[string]any
		if err := json.Unmarshal(t.StyleConfig, &obj); err != nil {
			return ErrInvalidStyleConfig
		}
	}
	return nil
}
