package mocks

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// MockUserStore implements store.UserStore for testing.
type MockUserStore struct {
	CreateFn           func(ctx context.Context, user *domain.User) error
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDForUpdateFn func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByLoginFn       func(ctx context.Context, login string) (*domain.User, error)
	UpdateQuotaFn      func(ctx context.Context, user *domain.User) error

	mu    sync.Mutex
	users map[uuid.UUID]domain.User

	// UpdateQuotaCalls counts persisted quota writes.
	UpdateQuotaCalls int
	// LockCalls counts GetByIDForUpdate calls.
	LockCalls int
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates an empty in-memory user store.
func NewMockUserStore(users ...*domain.User) *MockUserStore {
	m := &MockUserStore{users: make(map[uuid.UUID]domain.User)}
	for _, u := range users {
		m.users[u.ID] = *u
	}
	return m
}

// Put stores a copy of user.
func (m *MockUserStore) Put(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
}

// Get returns a copy of the stored user, or nil.
func (m *MockUserStore) Get(id uuid.UUID) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return &u
}

// Create implements store.UserStore.
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.ErrEmailExists
		}
		if existing.Username == user.Username {
			return store.ErrUsernameExists
		}
	}
	if user.Password != "" {
		user.HashedPassword = "hashed:" + user.Password
		user.Password = ""
	}
	m.users[user.ID] = *user
	return nil
}

// GetByID implements store.UserStore.
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if u := m.Get(id); u != nil {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

// GetByIDForUpdate implements store.UserStore.
func (m *MockUserStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	m.LockCalls++
	m.mu.Unlock()
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return m.GetByID(ctx, id)
}

// GetByLogin implements store.UserStore.
func (m *MockUserStore) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	if m.GetByLoginFn != nil {
		return m.GetByLoginFn(ctx, login)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// UpdateQuota implements store.UserStore.
func (m *MockUserStore) UpdateQuota(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	m.UpdateQuotaCalls++
	m.mu.Unlock()
	if m.UpdateQuotaFn != nil {
		return m.UpdateQuotaFn(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[user.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	existing.DailyQuota = user.DailyQuota
	existing.UsedQuota = user.UsedQuota
	existing.QuotaResetAt = user.QuotaResetAt
	m.users[user.ID] = existing
	return nil
}

// WithTx implements store.UserStore. The mock ignores transactions.
func (m *MockUserStore) WithTx(*sql.Tx) store.UserStore {
	return m
}
