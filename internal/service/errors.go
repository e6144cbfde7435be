package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// Sentinel errors callers check with errors.Is. The API layer maps each to
// an HTTP status.
var (
	// ErrNotOwned indicates a resource belongs to another user. The API
	// reports it as not found so existence is not leaked.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrInvalidCredentials is returned for an unknown login or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSchedulerBusy is returned when a task was stored but could not be scheduled.
	ErrSchedulerBusy = errors.New("video generation is busy, please retry later")
)

// ServiceError wraps an unexpected failure with the operation that hit it.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap supports errors.Is and errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// passThrough lists expected errors returned to callers without wrapping.
var passThrough = []error{
	ErrNotOwned,
	ErrInvalidCredentials,
	ErrSchedulerBusy,
	domain.ErrValidation,
	domain.ErrUserNotActive,
	domain.ErrTemplateNotAvailable,
	quota.ErrQuotaExceeded,
	generation.ErrScriptWriterDisabled,
	generation.ErrContentBlocked,
	store.ErrNotFound,
	store.ErrUserNotFound,
	store.ErrVideoTaskNotFound,
	store.ErrTemplateNotFound,
	store.ErrEmailExists,
	store.ErrUsernameExists,
}

// newServiceError wraps err unless it is an expected error, in which case
// it is returned as is.
func newServiceError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}
	for _, expected := range passThrough {
		if errors.Is(err, expected) {
			return err
		}
	}
	return &ServiceError{Service: service, Operation: operation, Message: message, Err: err}
}
