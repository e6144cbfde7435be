package store

import (
	"errors"
	"fmt"
)

// Store errors. Implementations wrap driver errors with these so callers
// never inspect driver types.
var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when the database rejects a row, for
	// example a task referencing a user that no longer exists.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStaleTask is returned when an update targets a task that already
	// reached a terminal state in the store.
	ErrStaleTask = errors.New("task already finalized")

	ErrUserNotFound      = fmt.Errorf("%w: user", ErrNotFound)
	ErrVideoTaskNotFound = fmt.Errorf("%w: video task", ErrNotFound)
	ErrTemplateNotFound  = fmt.Errorf("%w: template", ErrNotFound)

	ErrEmailExists    = fmt.Errorf("%w: email", ErrDuplicate)
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
