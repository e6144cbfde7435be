package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/events"
	"github.com/phrazzld/vidgen-api/internal/mocks"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMockDB returns a sqlmock database. Expectations are verified at cleanup.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func activeUser(t *testing.T) *domain.User {
	t.Helper()
	u, err := domain.NewUser("alice", "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	u.HashedPassword = "hashed:" + u.Password
	u.Password = ""
	return u
}

func newGate(t *testing.T, users *mocks.MockUserStore) *quota.Gate {
	t.Helper()
	g, err := quota.NewGate(users, testLogger())
	require.NoError(t, err)
	return g
}

// recordingHandler captures emitted events and can be told to fail.
type recordingHandler struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, e *events.TaskRequestEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return h.err
}

// fakeCanceller records cancelled task ids.
type fakeCanceller struct {
	mu        sync.Mutex
	cancelled []uuid.UUID
}

func (c *fakeCanceller) Cancel(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, id)
	return true
}
