// Package mocks provides shared test doubles for the store, provider and
// auth interfaces.
//
// Each mock has function fields that override a method when set. Without
// an override, the store mocks behave like small in-memory stores so that
// service and orchestration tests can run end to end:
//
//	users := mocks.NewMockUserStore()
//	users.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
//	    return nil, store.ErrUserNotFound
//	}
//
// The mocks are safe for concurrent use.
package mocks
