package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user, hashing the plaintext password.
	// Returns ErrEmailExists or ErrUsernameExists on conflicts.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByIDForUpdate is GetByID with a row lock held until the
	// surrounding transaction ends. Only meaningful on a WithTx store.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByLogin retrieves a user by username or email.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)

	// UpdateQuota persists DailyQuota, UsedQuota and QuotaResetAt.
	UpdateQuota(ctx context.Context, user *domain.User) error

	// WithTx returns a UserStore bound to tx.
	WithTx(tx *sql.Tx) UserStore
}
