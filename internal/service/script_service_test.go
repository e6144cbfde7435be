package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/mocks"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/phrazzld/vidgen-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	script string
	err    error
	calls  int
	last   generation.ScriptRequest
}

func (w *fakeWriter) WriteScript(_ context.Context, req generation.ScriptRequest) (string, error) {
	w.calls++
	w.last = req
	return w.script, w.err
}

func TestScriptService_GenerateScript(t *testing.T) {
	t.Parallel()

	db, sqlMock := newMockDB(t)
	user := activeUser(t)
	users := mocks.NewMockUserStore(user)
	writer := &fakeWriter{script: "Hook. Body. CTA."}
	svc, err := service.NewScriptService(db, users, newGate(t, users), writer, testLogger())
	require.NoError(t, err)

	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()

	script, err := svc.GenerateScript(context.Background(), user.ID, generation.ScriptRequest{Topic: "  coffee  "})
	require.NoError(t, err)
	assert.Equal(t, "Hook. Body. CTA.", script)
	assert.Equal(t, "coffee", writer.last.Topic)
	assert.Equal(t, domain.DefaultDurationSeconds, writer.last.DurationSeconds)
	assert.Equal(t, 1, users.Get(user.ID).UsedQuota)
}

func TestScriptService_WriterFailureConsumesNothing(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	user := activeUser(t)
	users := mocks.NewMockUserStore(user)
	writer := &fakeWriter{err: generation.ErrContentBlocked}
	svc, err := service.NewScriptService(db, users, newGate(t, users), writer, testLogger())
	require.NoError(t, err)

	_, err = svc.GenerateScript(context.Background(), user.ID, generation.ScriptRequest{Topic: "t"})
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
	assert.Equal(t, 0, users.Get(user.ID).UsedQuota)
}

func TestScriptService_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		db, _ := newMockDB(t)
		users := mocks.NewMockUserStore()
		svc, err := service.NewScriptService(db, users, newGate(t, users), nil, testLogger())
		require.NoError(t, err)
		_, err = svc.GenerateScript(context.Background(), activeUser(t).ID, generation.ScriptRequest{Topic: "t"})
		assert.ErrorIs(t, err, generation.ErrScriptWriterDisabled)
	})

	t.Run("empty topic", func(t *testing.T) {
		db, _ := newMockDB(t)
		users := mocks.NewMockUserStore()
		svc, err := service.NewScriptService(db, users, newGate(t, users), &fakeWriter{}, testLogger())
		require.NoError(t, err)
		_, err = svc.GenerateScript(context.Background(), activeUser(t).ID, generation.ScriptRequest{Topic: " "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("quota exhausted", func(t *testing.T) {
		db, _ := newMockDB(t)
		user := activeUser(t)
		user.DailyQuota = 0
		users := mocks.NewMockUserStore(user)
		writer := &fakeWriter{script: "s"}
		svc, err := service.NewScriptService(db, users, newGate(t, users), writer, testLogger())
		require.NoError(t, err)
		_, err = svc.GenerateScript(context.Background(), user.ID, generation.ScriptRequest{Topic: "t"})
		assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
		assert.Zero(t, writer.calls)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		db, _ := newMockDB(t)
		users := mocks.NewMockUserStore()
		users.GetByIDFn = func(context.Context, uuid.UUID) (*domain.User, error) {
			return nil, errors.New("connection reset")
		}
		writer := &fakeWriter{script: "s"}
		svc, err := service.NewScriptService(db, users, newGate(t, users), writer, testLogger())
		require.NoError(t, err)
		_, err = svc.GenerateScript(context.Background(), activeUser(t).ID, generation.ScriptRequest{Topic: "t"})
		var svcErr *service.ServiceError
		assert.ErrorAs(t, err, &svcErr)
		assert.Zero(t, writer.calls)
	})
}
