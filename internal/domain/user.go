package domain

import (
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrInvalidUsername     = errors.New("username must be between 3 and 50 characters")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrInvalidUserStatus   = errors.New("invalid user status")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

// DefaultDailyQuota is the number of generations a new user may start per day.
const DefaultDailyQuota = 5

// UserStatus is the account state of a user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBanned   UserStatus = "banned"
)

// User represents a registered account and its daily generation quota.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Password       string     `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string     `json:"-"`
	IsAdmin        bool       `json:"is_admin"`
	Status         UserStatus `json:"status"`
	// DailyQuota below zero means unlimited.
	DailyQuota   int        `json:"daily_quota"`
	UsedQuota    int        `json:"used_quota"`
	QuotaResetAt *time.Time `json:"quota_reset_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser creates an active, non-admin user with the default quota.
// The caller is responsible for hashing the password before storing the user.
func NewUser(username, email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:         uuid.New(),
		Username:   username,
		Email:      email,
		Password:   password,
		Status:     UserStatusActive,
		DailyQuota: DefaultDailyQuota,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if n := len([]rune(u.Username)); n < 3 || n > 50 {
		return ErrInvalidUsername
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return ErrInvalidEmail
	}
	switch u.Status {
	case UserStatusActive, UserStatusInactive, UserStatusBanned:
	default:
		return ErrInvalidUserStatus
	}

	if u.Password != "" {
		if len(u.Password) < 12 {
			return ErrPasswordTooShort
		}
		if len(u.Password) > 72 {
			return ErrPasswordTooLong
		}
	} else if u.HashedPassword == "" {
		return ErrEmptyPassword
	}
	return nil
}

// IsActive reports whether the user may use the service.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// UnlimitedQuota reports whether the user has no daily cap.
func (u *User) UnlimitedQuota() bool {
	return u.DailyQuota < 0
}

// ResetQuotaIfDue zeroes UsedQuota when the reset time has passed and
// schedules the next reset. It reports whether anything changed.
func (u *User) ResetQuotaIfDue(now time.Time) bool {
	if u.QuotaResetAt == nil || now.Before(*u.QuotaResetAt) {
		return false
	}
	u.UsedQuota = 0
	next := NextQuotaReset(now)
	u.QuotaResetAt = &next
	u.UpdatedAt = now
	return true
}

// HasQuota reports whether the user may consume one more unit at now.
// Call ResetQuotaIfDue first so a stale window does not block admission.
func (u *User) HasQuota(now time.Time) bool {
	if u.UnlimitedQuota() {
		return true
	}
	if u.QuotaResetAt != nil && !now.Before(*u.QuotaResetAt) {
		return u.DailyQuota > 0
	}
	return u.UsedQuota < u.DailyQuota
}

// ConsumeQuota records amount units of usage. The caller must check HasQuota.
func (u *User) ConsumeQuota(amount int, now time.Time) {
	u.UsedQuota += amount
	if u.QuotaResetAt == nil {
		next := NextQuotaReset(now)
		u.QuotaResetAt = &next
	}
	u.UpdatedAt = now
}

// RemainingQuota returns the units left in the current window, or -1 when unlimited.
func (u *User) RemainingQuota() int {
	if u.UnlimitedQuota() {
		return -1
	}
	if r := u.DailyQuota - u.UsedQuota; r > 0 {
		return r
	}
	return 0
}

// NextQuotaReset returns the next UTC midnight after now.
func NextQuotaReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
