package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest accepts a username or an email as the login.
type LoginRequest struct {
	Login    string `json:"login"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"token"`
	// ExpiresAt is RFC 3339.
	ExpiresAt string `json:"expires_at"`
}

// UserResponse describes the caller's account and quota.
type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	IsAdmin        bool       `json:"is_admin"`
	Status         string     `json:"status"`
	DailyQuota     int        `json:"daily_quota"`
	UsedQuota      int        `json:"used_quota"`
	RemainingQuota int        `json:"remaining_quota"`
	QuotaResetAt   *time.Time `json:"quota_reset_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreateVideoTaskRequest is the body of POST /video/generate.
type CreateVideoTaskRequest struct {
	Prompt          string  `json:"prompt"                   validate:"required,min=1,max=2000"`
	VideoStyle      *string `json:"video_style,omitempty"    validate:"omitempty,max=50"`
	DurationSeconds int     `json:"video_duration,omitempty" validate:"omitempty,min=5,max=300"`
	AspectRatio     string  `json:"aspect_ratio,omitempty"   validate:"omitempty,oneof=16:9 9:16 1:1"`
	TemplateID      *string `json:"template_id,omitempty"    validate:"omitempty,uuid"`
}

// VideoTaskResponse is the client view of a task.
type VideoTaskResponse struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                uuid.UUID  `json:"user_id"`
	Prompt                string     `json:"prompt"`
	VideoStyle            *string    `json:"video_style,omitempty"`
	DurationSeconds       int        `json:"video_duration"`
	AspectRatio           string     `json:"aspect_ratio"`
	TemplateID            *uuid.UUID `json:"template_id,omitempty"`
	Status                string     `json:"status"`
	Progress              int        `json:"progress"`
	ErrorMessage          *string    `json:"error_message,omitempty"`
	VideoURL              *string    `json:"video_url,omitempty"`
	ThumbnailURL          *string    `json:"thumbnail_url,omitempty"`
	ActualDurationSeconds *int       `json:"video_duration_actual,omitempty"`
	VideoSizeBytes        *int64     `json:"video_size,omitempty"`
	Provider              string     `json:"provider"`
	ProviderTaskID        *string    `json:"provider_task_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

// VideoTaskListResponse is one page of tasks.
type VideoTaskListResponse struct {
	Items    []VideoTaskResponse `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// GenerateScriptRequest is the body of POST /video/generate-script.
type GenerateScriptRequest struct {
	Prompt   string `json:"prompt"             validate:"required,min=1,max=2000"`
	Style    string `json:"style,omitempty"    validate:"omitempty,max=50"`
	Duration int    `json:"duration,omitempty" validate:"omitempty,min=5,max=300"`
}

// GenerateScriptResponse carries the drafted script.
type GenerateScriptResponse struct {
	Script string `json:"script"`
}

// TemplateRequest is the body of template create and update. On update,
// absent fields keep their stored values.
type TemplateRequest struct {
	Name            *string         `json:"name,omitempty"             validate:"omitempty,min=1,max=100"`
	Description     *string         `json:"description,omitempty"`
	Category        *string         `json:"category,omitempty"         validate:"omitempty,max=50"`
	Tags            *string         `json:"tags,omitempty"             validate:"omitempty,max=200"`
	PreviewURL      *string         `json:"preview_url,omitempty"      validate:"omitempty,max=500,url"`
	ThumbnailURL    *string         `json:"thumbnail_url,omitempty"    validate:"omitempty,max=500,url"`
	StyleConfig     json.RawMessage `json:"style_config,omitempty"`
	DefaultDuration *int            `json:"default_duration,omitempty" validate:"omitempty,min=5,max=300"`
	Rating          *float64        `json:"rating,omitempty"           validate:"omitempty,min=0,max=5"`
	IsActive        *bool           `json:"is_active,omitempty"`
	IsFeatured      *bool           `json:"is_featured,omitempty"`
}

// TemplateResponse is the client view of a template.
type TemplateResponse struct {
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

// TemplateListResponse is one page of templates.
type TemplateListResponse struct {
	Items    []TemplateResponse `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func videoTaskToResponse(t *domain.VideoTask) VideoTaskResponse {
	return VideoTaskResponse{
		ID:                    t.ID,
		UserID:                t.UserID,
		Prompt:                t.Prompt,
		VideoStyle:            t.VideoStyle,
		DurationSeconds:       t.DurationSeconds,
		AspectRatio:           string(t.AspectRatio),
		TemplateID:            t.TemplateID,
		Status:                string(t.Status),
		Progress:              t.Progress,
		ErrorMessage:          t.ErrorMessage,
		VideoURL:              t.VideoURL,
		ThumbnailURL:          t.ThumbnailURL,
		ActualDurationSeconds: t.ActualDurationSeconds,
		VideoSizeBytes:        t.VideoSizeBytes,
		Provider:              t.Provider,
		ProviderTaskID:        t.ProviderTaskID,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		CompletedAt:           t.CompletedAt,
	}
}

func templateToResponse(t *domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		Category:        t.Category,
		Tags:            t.Tags,
		PreviewURL:      t.PreviewURL,
		ThumbnailURL:    t.ThumbnailURL,
		StyleConfig:     t.StyleConfig,
		DefaultDuration: t.DefaultDuration,
		UsageCount:      t.UsageCount,
		Rating:          t.Rating,
		IsActive:        t.IsActive,
		IsFeatured:      t.IsFeatured,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}
