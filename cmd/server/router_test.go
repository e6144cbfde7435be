package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/mocks"
	"github.com/phrazzld/vidgen-api/internal/platform/ratelimit"
	"github.com/phrazzld/vidgen-api/internal/service"
	"github.com/phrazzld/vidgen-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, limiter ratelimit.Limiter, templates ...*domain.Template) http.Handler {
	t.Helper()

	userID := uuid.New()
	jwt := &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			switch token {
			case "user":
				return &auth.Claims{UserID: userID}, nil
			case "admin":
				return &auth.Claims{UserID: userID, IsAdmin: true}, nil
			default:
				return nil, auth.ErrInvalidToken
			}
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tplService, err := service.NewTemplateService(mocks.NewMockTemplateStore(templates...), logger)
	require.NoError(t, err)

	return newRouter(routerDeps{
		Logger:         logger,
		JWT:            jwt,
		Templates:      tplService,
		Limiter:        limiter,
		RequestTimeout: 5 * time.Second,
	})
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := serve(newTestRouter(t, nil), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRouterAuthentication(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, nil)
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"tasks need a token", http.MethodGet, "/api/v1/video/tasks", "", http.StatusUnauthorized},
		{"generate needs a token", http.MethodPost, "/api/v1/video/generate", "", http.StatusUnauthorized},
		{"me rejects a bad token", http.MethodGet, "/api/v1/auth/me", "forged", http.StatusUnauthorized},
		{"template create needs admin", http.MethodPost, "/api/v1/video/templates", "user", http.StatusForbidden},
		{"template delete needs admin", http.MethodDelete, "/api/v1/video/templates/" + uuid.NewString(), "user", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.method, tc.path, tc.token, "")
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRouterPublicTemplates(t *testing.T) {
	t.Parallel()

	active, err := domain.NewTemplate("Product showcase")
	require.NoError(t, err)
	hidden, err := domain.NewTemplate("Retired")
	require.NoError(t, err)
	hidden.IsActive = false

	h := newTestRouter(t, nil, active, hidden)

	rec := serve(h, http.MethodGet, "/api/v1/video/templates?include_inactive=true", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var anon struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anon))
	assert.Equal(t, 1, anon.Total, "anonymous callers never see inactive templates")

	rec = serve(h, http.MethodGet, "/api/v1/video/templates?include_inactive=true", "admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var admin struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admin))
	assert.Equal(t, 2, admin.Total)

	rec = serve(h, http.MethodGet, "/api/v1/video/templates/"+hidden.ID.String(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/video/templates/"+hidden.ID.String(), "admin", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterAdminCreatesTemplate(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, nil)
	rec := serve(h, http.MethodPost, "/api/v1/video/templates", "admin",
		`{"name":"Travel vlog","category":"lifestyle","default_duration":10}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouterRateLimit(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, ratelimit.NewMemoryLimiter(1, time.Minute))

	rec := serve(h, http.MethodPost, "/api/v1/video/templates", "user", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, http.MethodPost, "/api/v1/video/templates", "user", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = serve(h, http.MethodGet, "/api/v1/video/templates", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "public routes are not limited")
}
