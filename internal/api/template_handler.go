package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/vidgen-api/internal/api/shared"
	"github.com/phrazzld/vidgen-api/internal/service"
)

// TemplateHandler serves the template catalog.
type TemplateHandler struct {
	templates service.TemplateService
	logger    *slog.Logger
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(templates service.TemplateService, logger *slog.Logger) *TemplateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateHandler{
		templates: templates,
		logger:    logger.With(slog.String("component", "template_handler")),
	}
}

// List handles GET /video/templates. Administrators may pass
// include_inactive=true.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
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
	featured, err := queryBool(r, "is_featured")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	includeInactive, err := queryBool(r, "include_inactive")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	q := service.ListTemplatesQuery{
		IsFeatured: featured,
		Page:       page,
		PageSize:   size,
	}
	if c := r.URL.Query().Get("category"); c != "" {
		q.Category = &c
	}
	if includeInactive != nil && *includeInactive && shared.IsAdmin(r.Context()) {
		q.IncludeInactive = true
	}

	result, err := h.templates.List(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list templates")
		return
	}
	items := make([]TemplateResponse, 0, len(result.Templates))
	for _, t := range result.Templates {
		items = append(items, templateToResponse(t))
	}
	RespondWithJSON(w, r, http.StatusOK, TemplateListResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// Get handles GET /video/templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	tpl, err := h.templates.Get(r.Context(), id, shared.IsAdmin(r.Context()))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get template")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, templateToResponse(tpl))
}

// Create handles POST /video/templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Name == nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid name: required field")
		return
	}
	tpl, err := h.templates.Create(r.Context(), templateInput(req))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create template")
		return
	}
	RespondWithJSON(w, r, http.StatusCreated, templateToResponse(tpl))
}

// Update handles PUT /video/templates/{id}.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req TemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tpl, err := h.templates.Update(r.Context(), id, templateInput(req))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update template")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, templateToResponse(tpl))
}

// Delete handles DELETE /video/templates/{id}.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.templates.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete template")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "template deleted"})
}

func templateInput(req TemplateRequest) service.TemplateInput {
	return service.TemplateInput{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Tags:            req.Tags,
		PreviewURL:      req.PreviewURL,
		ThumbnailURL:    req.ThumbnailURL,
		StyleConfig:     req.StyleConfig,
		DefaultDuration: req.DefaultDuration,
		Rating:          req.Rating,
		IsActive:        req.IsActive,
		IsFeatured:      req.IsFeatured,
	}
}
