package domain

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// VideoTaskStatus represents the lifecycle state of a video generation task.
type VideoTaskStatus string

// Possible video task status values
const (
	VideoTaskStatusPending    VideoTaskStatus = "pending"
	VideoTaskStatusProcessing VideoTaskStatus = "processing"
	VideoTaskStatusCompleted  VideoTaskStatus = "completed"
	VideoTaskStatusFailed     VideoTaskStatus = "failed"
)

// IsTerminal reports whether no further transition is possible from s.
func (s VideoTaskStatus) IsTerminal() bool {
	return s == VideoTaskStatusCompleted || s == VideoTaskStatusFailed
}

// Valid reports whether s is a known status.
func (s VideoTaskStatus) Valid() bool {
	switch s {
	case VideoTaskStatusPending, VideoTaskStatusProcessing,
		VideoTaskStatusCompleted, VideoTaskStatusFailed:
		return true
	default:
		return false
	}
}

// AspectRatio is the requested frame shape of a video.
type AspectRatio string

const (
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
	AspectRatioSquare    AspectRatio = "1:1"
)

// Valid reports whether r is a supported ratio.
func (r AspectRatio) Valid() bool {
	switch r {
	case AspectRatioLandscape, AspectRatioPortrait, AspectRatioSquare:
		return true
	default:
		return false
	}
}

// Request limits.
const (
	MaxPromptLength        = 2000
	MaxVideoStyleLength    = 50
	MinDurationSeconds     = 5
	MaxDurationSeconds     = 300
	DefaultDurationSeconds = 30

	progressProcessing = 10
	progressSubmitted  = 30
	progressCeiling    = 99
	progressComplete   = 100

	defaultFailureMessage = "video generation failed"
)

// Common validation errors for VideoTask
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID    = errors.New("task user ID cannot be empty")
	ErrInvalidPrompt      = errors.New("prompt must be between 1 and 2000 characters")
	ErrInvalidVideoStyle  = errors.New("video style must be at most 50 characters")
	ErrInvalidDuration    = errors.New("duration must be between 5 and 300 seconds")
	ErrInvalidAspectRatio = errors.New("aspect ratio must be one of 16:9, 9:16, 1:1")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrInvalidProgress    = errors.New("progress must be between 0 and 100")
)

// VideoTask is one user request to generate a video and the record of its
// progress through the external provider.
type VideoTask struct {
	ID                    uuid.UUID       `json:"id"`
	UserID                uuid.UUID       `json:"user_id"`
	Prompt                string          `json:"prompt"`
	VideoStyle            *string         `json:"video_style,omitempty"`
	DurationSeconds       int             `json:"video_duration"`
	AspectRatio           AspectRatio     `json:"aspect_ratio"`
	TemplateID            *uuid.UUID      `json:"template_id,omitempty"`
	Provider              string          `json:"provider"`
	ProviderTaskID        *string         `json:"provider_task_id,omitempty"`
	VideoURL              *string         `json:"video_url,omitempty"`
	ThumbnailURL          *string         `json:"thumbnail_url,omitempty"`
	ActualDurationSeconds *int            `json:"video_duration_actual,omitempty"`
	VideoSizeBytes        *int64          `json:"video_size,omitempty"`
	Progress              int             `json:"progress"`
	Status                VideoTaskStatus `json:"status"`
	ErrorMessage          *string         `json:"error_message,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
}

// VideoTaskParams carries the caller supplied fields of a new task.
type VideoTaskParams struct {
	Prompt          string
	VideoStyle      *string
	DurationSeconds int
	AspectRatio     AspectRatio
	TemplateID      *uuid.UUID
	Provider        string
}

// VideoResult is what the provider reports for a finished generation.
type VideoResult struct {
	VideoURL              string
	ThumbnailURL          string
	ActualDurationSeconds int
	SizeBytes             *int64
}

// NewVideoTask creates a PENDING task owned by userID, applying defaults for
// an unset duration or aspect ratio.
func NewVideoTask(userID uuid.UUID, params VideoTaskParams) (*VideoTask, error) {
	now := time.Now().UTC()
	t := &VideoTask{
		ID:              uuid.New(),
		UserID:          userID,
		Prompt:          params.Prompt,
		VideoStyle:      params.VideoStyle,
		DurationSeconds: params.DurationSeconds,
		AspectRatio:     params.AspectRatio,
		TemplateID:      params.TemplateID,
		Provider:        params.Provider,
		Status:          VideoTaskStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if t.DurationSeconds == 0 {
		t.DurationSeconds = DefaultDurationSeconds
	}
	if t.AspectRatio == "" {
		t.AspectRatio = AspectRatioLandscape
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks field ranges and the status dependent invariants.
func (t *VideoTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}
	if n := utf8.RuneCountInString(t.Prompt); n < 1 || n > MaxPromptLength || strings.TrimSpace(t.Prompt) == "" {
		return ErrInvalidPrompt
	}
	if t.VideoStyle != nil && utf8.RuneCountInString(*t.VideoStyle) > MaxVideoStyleLength {
		return ErrInvalidVideoStyle
	}
	if t.DurationSeconds < MinDurationSeconds || t.DurationSeconds > MaxDurationSeconds {
		return ErrInvalidDuration
	}
	if !t.AspectRatio.Valid() {
		return ErrInvalidAspectRatio
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	if t.Progress < 0 || t.Progress > progressComplete {
		return ErrInvalidProgress
	}
	if t.Status == VideoTaskStatusCompleted && (t.VideoURL == nil || *t.VideoURL == "") {
		return ErrMissingVideoURL
	}
	return nil
}

// CanTransition reports whether the state machine allows from -> to.
// Staying in PROCESSING is allowed so progress can be recorded.
func CanTransition(from, to VideoTaskStatus) bool {
	switch from {
	case VideoTaskStatusPending:
		return to == VideoTaskStatusProcessing || to == VideoTaskStatusFailed
	case VideoTaskStatusProcessing:
		return to == VideoTaskStatusProcessing ||
			to == VideoTaskStatusCompleted ||
			to == VideoTaskStatusFailed
	default:
		return false
	}
}

func (t *VideoTask) transition(to VideoTaskStatus) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", ErrTaskTerminal, t.ID, t.Status)
	}
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	return nil
}

// requireProcessing guards operations that only make sense mid-flight.
func (t *VideoTask) requireProcessing(to VideoTaskStatus) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", ErrTaskTerminal, t.ID, t.Status)
	}
	if t.Status != VideoTaskStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	return nil
}

func (t *VideoTask) raiseProgress(p int) {
	if p > t.Progress {
		t.Progress = p
	}
}

// StartProcessing moves a PENDING task to PROCESSING at progress 10.
// A task already PROCESSING, as found after a restart, is left as is.
func (t *VideoTask) StartProcessing(now time.Time) error {
	if t.Status == VideoTaskStatusProcessing {
		return nil
	}
	if err := t.transition(VideoTaskStatusProcessing); err != nil {
		return err
	}
	t.Status = VideoTaskStatusProcessing
	t.raiseProgress(progressProcessing)
	t.UpdatedAt = now
	return nil
}

// RecordSubmission stores the provider's identifier and moves progress to 30.
func (t *VideoTask) RecordSubmission(providerTaskID string, now time.Time) error {
	if providerTaskID == "" {
		return fmt.Errorf("%w: empty provider task id", ErrValidation)
	}
	if err := t.requireProcessing(VideoTaskStatusProcessing); err != nil {
		return err
	}
	t.ProviderTaskID = &providerTaskID
	t.raiseProgress(progressSubmitted)
	t.UpdatedAt = now
	return nil
}

// RecordProgress raises progress while PROCESSING. Values are capped at 99
// and never decrease.
func (t *VideoTask) RecordProgress(p int, now time.Time) error {
	if err := t.requireProcessing(VideoTaskStatusProcessing); err != nil {
		return err
	}
	if p > progressCeiling {
		p = progressCeiling
	}
	t.raiseProgress(p)
	t.UpdatedAt = now
	return nil
}

// Complete records the finished video and moves the task to COMPLETED.
func (t *VideoTask) Complete(result VideoResult, now time.Time) error {
	if result.VideoURL == "" {
		return ErrMissingVideoURL
	}
	if err := t.requireProcessing(VideoTaskStatusCompleted); err != nil {
		return err
	}

	thumb := result.ThumbnailURL
	if thumb == "" {
		thumb = ThumbnailURL(result.VideoURL)
	}
	videoURL := result.VideoURL
	t.VideoURL = &videoURL
	t.ThumbnailURL = &thumb
	if result.ActualDurationSeconds > 0 {
		d := result.ActualDurationSeconds
		t.ActualDurationSeconds = &d
	}
	t.VideoSizeBytes = result.SizeBytes
	t.Status = VideoTaskStatusCompleted
	t.Progress = progressComplete
	t.ErrorMessage = nil
	completed := now
	t.CompletedAt = &completed
	t.UpdatedAt = now
	return nil
}

// Fail moves the task to FAILED with message. An empty message is replaced
// with a generic one so failed tasks always explain themselves.
func (t *VideoTask) Fail(message string, now time.Time) error {
	if err := t.transition(VideoTaskStatusFailed); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		message = defaultFailureMessage
	}
	t.Status = VideoTaskStatusFailed
	t.ErrorMessage = &message
	t.UpdatedAt = now
	return nil
}

// ThumbnailURL derives a thumbnail location from a video URL by replacing
// the file extension of its path with .jpg.
func ThumbnailURL(videoURL string) string {
	u, err := url.Parse(videoURL)
	if err != nil || u.Path == "" {
		return videoURL + ".jpg"
	}
	ext := path.Ext(u.Path)
	u.Path = strings.TrimSuffix(u.Path, ext) + ".jpg"
	u.RawPath = ""
	return u.String()
}
