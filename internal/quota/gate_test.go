package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/mocks"
	"github.com/phrazzld/vidgen-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

func newUser(daily, used int, resetAt *time.Time) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Username:     "quota-user",
		Email:        "quota@example.com",
		Status:       domain.UserStatusActive,
		DailyQuota:   daily,
		UsedQuota:    used,
		QuotaResetAt: resetAt,
	}
}

func newTestGate(t *testing.T, users *mocks.MockUserStore) *Gate {
	t.Helper()
	g, err := NewGate(users, nil)
	require.NoError(t, err)
	g.now = func() time.Time { return testNow }
	return g
}

func TestNewGateRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewGate(nil, nil)
	assert.Error(t, err)
}

func TestAdmit(t *testing.T) {
	t.Parallel()

	tomorrow := domain.NextQuotaReset(testNow)
	yesterday := testNow.Add(-time.Hour)

	tests := []struct {
		name        string
		user        *domain.User
		wantAdmit   bool
		wantPersist bool
	}{
		{"fresh user", newUser(5, 0, nil), true, false},
		{"partly used", newUser(5, 4, &tomorrow), true, false},
		{"exhausted", newUser(5, 5, &tomorrow), false, false},
		{"exhausted but reset due", newUser(5, 5, &yesterday), true, true},
		{"unlimited", newUser(-1, 500, &tomorrow), true, false},
		{"zero quota", newUser(0, 0, nil), false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			users := mocks.NewMockUserStore(tc.user)
			g := newTestGate(t, users)

			ok, err := g.Admit(context.Background(), tc.user.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAdmit, ok)

			if tc.wantPersist {
				assert.Equal(t, 1, users.UpdateQuotaCalls)
				stored := users.Get(tc.user.ID)
				assert.Equal(t, 0, stored.UsedQuota)
				require.NotNil(t, stored.QuotaResetAt)
				assert.Equal(t, tomorrow, *stored.QuotaResetAt)
			} else {
				assert.Zero(t, users.UpdateQuotaCalls, "admission alone must not write")
			}
		})
	}
}

func TestAdmitUnknownUser(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, mocks.NewMockUserStore())
	_, err := g.Admit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestConsume(t *testing.T) {
	t.Parallel()

	tomorrow := domain.NextQuotaReset(testNow)
	user := newUser(2, 1, &tomorrow)
	users := mocks.NewMockUserStore(user)
	g := newTestGate(t, users)

	ok, err := g.Consume(context.Background(), user.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, users.LockCalls, "consumption reads under a row lock")
	assert.Equal(t, 2, users.Get(user.ID).UsedQuota)

	ok, err = g.Consume(context.Background(), user.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok, "no quota left")
	assert.Equal(t, 2, users.Get(user.ID).UsedQuota, "a rejected consume records nothing")
}

func TestConsumeStartsWindow(t *testing.T) {
	t.Parallel()

	user := newUser(5, 0, nil)
	users := mocks.NewMockUserStore(user)
	g := newTestGate(t, users)

	ok, err := g.Consume(context.Background(), user.ID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	stored := users.Get(user.ID)
	assert.Equal(t, 1, stored.UsedQuota)
	require.NotNil(t, stored.QuotaResetAt)
	assert.Equal(t, domain.NextQuotaReset(testNow), *stored.QuotaResetAt)
}

func TestConsumeAfterReset(t *testing.T) {
	t.Parallel()

	yesterday := testNow.Add(-2 * time.Hour)
	user := newUser(3, 3, &yesterday)
	users := mocks.NewMockUserStore(user)
	g := newTestGate(t, users)

	ok, err := g.Consume(context.Background(), user.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, users.Get(user.ID).UsedQuota)
}

func TestConsumePersistError(t *testing.T) {
	t.Parallel()

	user := newUser(5, 0, nil)
	users := mocks.NewMockUserStore(user)
	users.UpdateQuotaFn = func(context.Context, *domain.User) error { return errors.New("db down") }
	g := newTestGate(t, users)

	ok, err := g.Consume(context.Background(), user.ID, 1)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	tomorrow := domain.NextQuotaReset(testNow)
	yesterday := testNow.Add(-time.Hour)

	for name, tc := range map[string]struct {
		user *domain.User
		want int
	}{
		"partly used":  {newUser(5, 2, &tomorrow), 3},
		"reset due":    {newUser(5, 5, &yesterday), 5},
		"unlimited":    {newUser(-1, 9, nil), -1},
		"over the cap": {newUser(5, 7, &tomorrow), 0},
	} {
		t.Run(name, func(t *testing.T) {
			g := newTestGate(t, mocks.NewMockUserStore(tc.user))
			got, err := g.Remaining(context.Background(), tc.user.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
