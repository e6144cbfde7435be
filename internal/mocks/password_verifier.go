package mocks

import (
	"errors"
	"strings"
)

// MockPasswordVerifier implements auth.PasswordVerifier for testing.
// By default it accepts the "hashed:<password>" form written by
// MockUserStore.Create.
type MockPasswordVerifier struct {
	CompareFn func(hashedPassword, password string) error

	// CompareCallCount tracks how many times Compare was called
	CompareCallCount int
}

// Compare implements the auth.PasswordVerifier interface
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCallCount++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if strings.TrimPrefix(hashedPassword, "hashed:") == password && strings.HasPrefix(hashedPassword, "hashed:") {
		return nil
	}
	return errors.New("password mismatch")
}
