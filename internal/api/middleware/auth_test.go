package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/api/shared"
	"github.com/phrazzld/vidgen-api/internal/mocks"
	"github.com/phrazzld/vidgen-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
)

func identityHandler(t *testing.T, wantUser uuid.UUID, wantAdmin bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.UserID(r.Context())
		assert.True(t, ok)
		assert.Equal(t, wantUser, id)
		assert.Equal(t, wantAdmin, shared.IsAdmin(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jwt := &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			switch token {
			case "good":
				return &auth.Claims{UserID: userID, IsAdmin: true}, nil
			case "old":
				return nil, auth.ErrExpiredToken
			case "bad":
				return nil, auth.ErrInvalidToken
			default:
				return nil, errors.New("keystore unavailable")
			}
		},
	}
	h := NewAuthMiddleware(jwt).Authenticate(identityHandler(t, userID, true))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"expired", "Bearer old", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"internal", "Bearer other", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jwt := &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			if token == "good" {
				return &auth.Claims{UserID: userID, IsAdmin: true}, nil
			}
			return nil, auth.ErrInvalidToken
		},
	}
	h := NewAuthMiddleware(jwt).OptionalAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := shared.UserID(r.Context()); ok {
			w.Header().Set("X-User", id.String())
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	for header, wantUser := range map[string]string{
		"Bearer good": userID.String(),
		"Bearer bad":  "",
		"":            "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, header)
		assert.Equal(t, wantUser, rec.Header().Get("X-User"), header)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	h := RequireAdmin(identityHandler(t, userID, true))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(shared.WithUser(req.Context(), userID, false)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(shared.WithUser(req.Context(), userID, true)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var traceID string
	h := TraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, traceID, shared.TraceIDLength*2)
}
