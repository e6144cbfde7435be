package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/api/shared"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeVideoService struct {
	CreateTaskFn func(ctx context.Context, userID uuid.UUID, req service.CreateVideoTaskRequest) (*domain.VideoTask, error)
	GetTaskFn    func(ctx context.Context, userID, taskID uuid.UUID) (*domain.VideoTask, error)
	ListTasksFn  func(ctx context.Context, userID uuid.UUID, q service.ListVideoTasksQuery) (*service.VideoTaskPage, error)
	DeleteTaskFn func(ctx context.Context, userID, taskID uuid.UUID) error
}

func (f *fakeVideoService) CreateTask(ctx context.Context, userID uuid.UUID, req service.CreateVideoTaskRequest) (*domain.VideoTask, error) {
	return f.CreateTaskFn(ctx, userID, req)
}

func (f *fakeVideoService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.VideoTask, error) {
	return f.GetTaskFn(ctx, userID, taskID)
}

func (f *fakeVideoService) ListTasks(ctx context.Context, userID uuid.UUID, q service.ListVideoTasksQuery) (*service.VideoTaskPage, error) {
	return f.ListTasksFn(ctx, userID, q)
}

func (f *fakeVideoService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	return f.DeleteTaskFn(ctx, userID, taskID)
}

type fakeScriptService struct {
	GenerateScriptFn func(ctx context.Context, userID uuid.UUID, req generation.ScriptRequest) (string, error)
}

func (f *fakeScriptService) GenerateScript(ctx context.Context, userID uuid.UUID, req generation.ScriptRequest) (string, error) {
	return f.GenerateScriptFn(ctx, userID, req)
}

type fakeUserService struct {
	RegisterFn       func(ctx context.Context, username, email, password string) (*domain.User, error)
	AuthenticateFn   func(ctx context.Context, login, password string) (*domain.User, error)
	GetUserFn        func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	RemainingQuotaFn func(ctx context.Context, userID uuid.UUID) (int, error)
}

func (f *fakeUserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	return f.RegisterFn(ctx, username, email, password)
}

func (f *fakeUserService) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	return f.AuthenticateFn(ctx, login, password)
}

func (f *fakeUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return f.GetUserFn(ctx, userID)
}

func (f *fakeUserService) RemainingQuota(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.RemainingQuotaFn(ctx, userID)
}

// asUser injects an authenticated identity the way the auth middleware does.
func asUser(userID uuid.UUID, admin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.WithUser(r.Context(), userID, admin)))
		})
	}
}

func videoRouter(h *VideoHandler, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(userID, false))
	r.Post("/video/generate", h.CreateTask)
	r.Post("/video/generate-script", h.GenerateScript)
	r.Get("/video/tasks", h.ListTasks)
	r.Get("/video/tasks/{id}", h.GetTask)
	r.Delete("/video/tasks/{id}", h.DeleteTask)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
