package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/phrazzld/vidgen-api/internal/service/auth"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// UserService provides account operations.
type UserService interface {
	// Register creates an active user with the default daily quota.
	Register(ctx context.Context, username, email, password string) (*domain.User, error)

	// Authenticate resolves login (username or email) and checks password.
	// Unknown logins and wrong passwords both yield ErrInvalidCredentials.
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// RemainingQuota returns the generations left today, or -1 when unlimited.
	RemainingQuota(ctx context.Context, userID uuid.UUID) (int, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	users    store.UserStore
	verifier auth.PasswordVerifier
	gate     *quota.Gate
	logger   *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	users store.UserStore,
	verifier auth.PasswordVerifier,
	gate *quota.Gate,
	logger *slog.Logger,
) (*UserServiceImpl, error) {
	if users == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if verifier == nil {
		return nil, errors.New("password verifier cannot be nil")
	}
	if gate == nil {
		return nil, errors.New("quota gate cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		users:    users,
		verifier: verifier,
		gate:     gate,
		logger:   logger.With("component", "user_service"),
	}, nil
}

// Register implements UserService.
func (s *UserServiceImpl) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(strings.TrimSpace(username), strings.TrimSpace(email), password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !store.IsDuplicateError(err) {
			log.Error("failed to create user", "error", err)
		}
		return nil, newServiceError("user", "register", "failed to create user", err)
	}
	// Only the hash is kept past this point.
	user.Password = ""

	log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate implements UserService.
func (s *UserServiceImpl) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	user, err := s.users.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, newServiceError("user", "authenticate", "failed to load user", err)
	}
	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, domain.ErrUserNotActive
	}
	return user, nil
}

// GetUser implements UserService.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, newServiceError("user", "get", "failed to retrieve user", err)
	}
	return user, nil
}

// RemainingQuota implements UserService.
func (s *UserServiceImpl) RemainingQuota(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.gate.Remaining(ctx, userID)
	if err != nil {
		return 0, newServiceError("user", "remaining_quota", "failed to read quota", err)
	}
	return n, nil
}
