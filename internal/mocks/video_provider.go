package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/vidgen-api/internal/generation"
)

// MockVideoProvider implements generation.VideoProvider for testing.
//
// Without SubmitFn it acknowledges every job with ProviderTaskID. Without
// PollFn it replays Polls in order and repeats the last entry.
type MockVideoProvider struct {
	SubmitFn func(ctx context.Context, req generation.SubmitRequest) (*generation.SubmitResult, error)
	PollFn   func(ctx context.Context, providerTaskID string) generation.PollResult

	ProviderTaskID string
	Polls          []generation.PollResult

	mu        sync.Mutex
	submits   []generation.SubmitRequest
	pollCount int
}

var _ generation.VideoProvider = (*MockVideoProvider)(nil)

// Name implements generation.VideoProvider.
func (m *MockVideoProvider) Name() string { return "mock" }

// Submit implements generation.VideoProvider.
func (m *MockVideoProvider) Submit(ctx context.Context, req generation.SubmitRequest) (*generation.SubmitResult, error) {
	m.mu.Lock()
	m.submits = append(m.submits, req)
	m.mu.Unlock()
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	id := m.ProviderTaskID
	if id == "" {
		id = "mock-task"
	}
	return &generation.SubmitResult{ProviderTaskID: id}, nil
}

// Poll implements generation.VideoProvider.
func (m *MockVideoProvider) Poll(ctx context.Context, providerTaskID string) generation.PollResult {
	m.mu.Lock()
	i := m.pollCount
	m.pollCount++
	m.mu.Unlock()
	if m.PollFn != nil {
		return m.PollFn(ctx, providerTaskID)
	}
	if len(m.Polls) == 0 {
		return generation.PollResult{State: generation.StateRunning}
	}
	if i >= len(m.Polls) {
		i = len(m.Polls) - 1
	}
	return m.Polls[i]
}

// Submits returns the requests passed to Submit.
func (m *MockVideoProvider) Submits() []generation.SubmitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.SubmitRequest(nil), m.submits...)
}

// PollCount returns how many times Poll was called.
func (m *MockVideoProvider) PollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCount
}
