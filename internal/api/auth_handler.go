package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/service"
	"github.com/phrazzld/vidgen-api/internal/service/auth"
)

// AuthHandler handles account endpoints.
type AuthHandler struct {
	users      service.UserService
	jwtService auth.JWTService
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(users service.UserService, jwtService auth.JWTService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		logger:     logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}
	remaining, err := h.users.RemainingQuota(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load quota")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		IsAdmin:        user.IsAdmin,
		Status:         string(user.Status),
		DailyQuota:     user.DailyQuota,
		UsedQuota:      user.UsedQuota,
		RemainingQuota: remaining,
		QuotaResetAt:   user.QuotaResetAt,
		CreatedAt:      user.CreatedAt,
	})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *domain.User) {
	token, err := h.jwtService.GenerateToken(r.Context(), user.ID, user.IsAdmin)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to generate token",
			"error", err,
			"user_id", user.ID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}
	RespondWithJSON(w, r, status, AuthResponse{
		UserID:      user.ID,
		AccessToken: token,
		ExpiresAt:   time.Now().UTC().Add(h.jwtService.TokenLifetime()).Format(time.RFC3339),
	})
}
