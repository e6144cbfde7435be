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

// MockTemplateStore implements store.TemplateStore for testing.
type MockTemplateStore struct {
	IncrementUsageFn func(ctx context.Context, id uuid.UUID) error

	mu        sync.Mutex
	templates map[uuid.UUID]domain.Template
}

var _ store.TemplateStore = (*MockTemplateStore)(nil)

// NewMockTemplateStore creates an in-memory template store.
func NewMockTemplateStore(templates ...*domain.Template) *MockTemplateStore {
	m := &MockTemplateStore{templates: make(map[uuid.UUID]domain.Template)}
	for _, t := range templates {
		m.templates[t.ID] = *t
	}
	return m
}

// Get returns a copy of the stored template, or nil.
func (m *MockTemplateStore) Get(id uuid.UUID) *domain.Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil
	}
	return &t
}

// Create implements store.TemplateStore.
func (m *MockTemplateStore) Create(_ context.Context, tpl *domain.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[tpl.ID]; ok {
		return store.ErrDuplicate
	}
	m.templates[tpl.ID] = *tpl
	return nil
}

// GetByID implements store.TemplateStore.
func (m *MockTemplateStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Template, error) {
	if t := m.Get(id); t != nil {
		return t, nil
	}
	return nil, store.ErrTemplateNotFound
}

// List implements store.TemplateStore.
func (m *MockTemplateStore) List(_ context.Context, filter store.TemplateFilter) ([]*domain.Template, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Template
	for _, t := range m.templates {
		if !filter.IncludeInactive && !t.IsActive {
			continue
		}
		if filter.Category != nil && (t.Category == nil || *t.Category != *filter.Category) {
			continue
		}
		if filter.IsFeatured != nil && t.IsFeatured != *filter.IsFeatured {
			continue
		}
		tpl := t
		out = append(out, &tpl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFeatured != out[j].IsFeatured {
			return out[i].IsFeatured
		}
		return out[i].UsageCount > out[j].UsageCount
	})
	total := len(out)
	if filter.Offset >= total {
		return []*domain.Template{}, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

// Update implements store.TemplateStore.
func (m *MockTemplateStore) Update(_ context.Context, tpl *domain.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[tpl.ID]; !ok {
		return store.ErrTemplateNotFound
	}
	m.templates[tpl.ID] = *tpl
	return nil
}

// Delete implements store.TemplateStore.
func (m *MockTemplateStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return store.ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

// IncrementUsage implements store.TemplateStore.
func (m *MockTemplateStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	if m.IncrementUsageFn != nil {
		return m.IncrementUsageFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || !t.IsActive {
		return store.ErrTemplateNotFound
	}
	t.UsageCount++
	m.templates[id] = t
	return nil
}

// WithTx implements store.TemplateStore. The mock ignores transactions.
func (m *MockTemplateStore) WithTx(*sql.Tx) store.TemplateStore {
	return m
}
