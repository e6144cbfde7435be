package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/service"
)

// VideoHandler serves the video task and script endpoints.
type VideoHandler struct {
	videos  service.VideoService
	scripts service.ScriptService
	logger  *slog.Logger
}

// NewVideoHandler creates a VideoHandler.
func NewVideoHandler(videos service.VideoService, scripts service.ScriptService, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for VideoHandler")
	}
	return &VideoHandler{
		videos:  videos,
		scripts: scripts,
		logger:  logger.With(slog.String("component", "video_handler")),
	}
}

// CreateTask handles POST /video/generate. The task is returned as soon as it
// is stored; generation continues in the background.
func (h *VideoHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateVideoTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := service.CreateVideoTaskRequest{
		Prompt:          req.Prompt,
		VideoStyle:      req.VideoStyle,
		DurationSeconds: req.DurationSeconds,
		AspectRatio:     domain.AspectRatio(req.AspectRatio),
	}
	if req.TemplateID != nil {
		id, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			HandleAPIError(w, r, domain.ErrInvalidID, "")
			return
		}
		in.TemplateID = &id
	}

	vt, err := h.videos.CreateTask(r.Context(), userID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create video task")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("video task accepted",
		slog.String("user_id", userID.String()),
		slog.String("video_task_id", vt.ID.String()))
	RespondWithJSON(w, r, http.StatusAccepted, videoTaskToResponse(vt))
}

// ListTasks handles GET /video/tasks.
func (h *VideoHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	size, err := queryInt(r, "page_size")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	q := service.ListVideoTasksQuery{Page: page, PageSize: size}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.VideoTaskStatus(s)
		q.Status = &status
	}

	result, err := h.videos.ListTasks(r.Context(), userID, q)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list video tasks")
		return
	}
	items := make([]VideoTaskResponse, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		items = append(items, videoTaskToResponse(t))
	}
	RespondWithJSON(w, r, http.StatusOK, VideoTaskListResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// GetTask handles GET /video/tasks/{id}.
func (h *VideoHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	vt, err := h.videos.GetTask(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get video task")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, videoTaskToResponse(vt))
}

// DeleteTask handles DELETE /video/tasks/{id}.
func (h *VideoHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.videos.DeleteTask(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete video task")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "task deleted"})
}

// GenerateScript handles POST /video/generate-script.
func (h *VideoHandler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req GenerateScriptRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	script, err := h.scripts.GenerateScript(r.Context(), userID, generation.ScriptRequest{
		Topic:           req.Prompt,
		Style:           req.Style,
		DurationSeconds: req.Duration,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate script")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, GenerateScriptResponse{Script: script})
}
