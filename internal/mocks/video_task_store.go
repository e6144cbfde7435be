package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// MockVideoTaskStore implements store.VideoTaskStore for testing.
// Update mirrors the database guard: a terminal row is never overwritten.
type MockVideoTaskStore struct {
	CreateFn         func(ctx context.Context, task *domain.VideoTask) error
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.VideoTask, error)
	UpdateFn         func(ctx context.Context, task *domain.VideoTask) error
	ListFn           func(ctx context.Context, filter store.VideoTaskFilter) ([]*domain.VideoTask, int, error)
	ListUnfinishedFn func(ctx context.Context) ([]*domain.VideoTask, error)
	DeleteFn         func(ctx context.Context, id, userID uuid.UUID) error

	mu    sync.Mutex
	tasks map[uuid.UUID]domain.VideoTask
	// History records every successfully persisted status, in order, per task.
	History map[uuid.UUID][]domain.VideoTaskStatus
}

var _ store.VideoTaskStore = (*MockVideoTaskStore)(nil)

// NewMockVideoTaskStore creates an in-memory task store.
func NewMockVideoTaskStore(tasks ...*domain.VideoTask) *MockVideoTaskStore {
	m := &MockVideoTaskStore{
		tasks:   make(map[uuid.UUID]domain.VideoTask),
		History: make(map[uuid.UUID][]domain.VideoTaskStatus),
	}
	for _, t := range tasks {
		m.tasks[t.ID] = *t
	}
	return m
}

// Get returns a copy of the stored task, or nil.
func (m *MockVideoTaskStore) Get(id uuid.UUID) *domain.VideoTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	return &t
}

// Statuses returns the persisted status history of a task.
func (m *MockVideoTaskStore) Statuses(id uuid.UUID) []domain.VideoTaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.VideoTaskStatus(nil), m.History[id]...)
}

// Create implements store.VideoTaskStore.
func (m *MockVideoTaskStore) Create(ctx context.Context, task *domain.VideoTask) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	m.tasks[task.ID] = *task
	m.History[task.ID] = append(m.History[task.ID], task.Status)
	return nil
}

// GetByID implements store.VideoTaskStore.
func (m *MockVideoTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.VideoTask, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if t := m.Get(id); t != nil {
		return t, nil
	}
	return nil, store.ErrVideoTaskNotFound
}

// Update implements store.VideoTaskStore.
func (m *MockVideoTaskStore) Update(ctx context.Context, task *domain.VideoTask) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tasks[task.ID]
	if !ok {
		return store.ErrVideoTaskNotFound
	}
	if existing.Status.IsTerminal() {
		return store.ErrStaleTask
	}
	m.tasks[task.ID] = *task
	h := m.History[task.ID]
	if len(h) == 0 || h[len(h)-1] != task.Status {
		m.History[task.ID] = append(h, task.Status)
	}
	return nil
}

// List implements store.VideoTaskStore.
func (m *MockVideoTaskStore) List(ctx context.Context, filter store.VideoTaskFilter) ([]*domain.VideoTask, int, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.VideoTask
	for _, t := range m.tasks {
		if t.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		task := t
		matched = append(matched, &task)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if filter.Offset >= total {
		return []*domain.VideoTask{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// ListUnfinished implements store.VideoTaskStore.
func (m *MockVideoTaskStore) ListUnfinished(ctx context.Context) ([]*domain.VideoTask, error) {
	if m.ListUnfinishedFn != nil {
		return m.ListUnfinishedFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.VideoTask
	for _, t := range m.tasks {
		if !t.Status.IsTerminal() {
			task := t
			out = append(out, &task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete implements store.VideoTaskStore.
func (m *MockVideoTaskStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return store.ErrVideoTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

// WithTx implements store.VideoTaskStore. The mock ignores transactions.
func (m *MockVideoTaskStore) WithTx(*sql.Tx) store.VideoTaskStore {
	return m
}
