// Package quota enforces per-user daily generation limits.
//
// Admission is checked before any work starts and consumption is recorded
// under a row lock, so concurrent requests from one user cannot overspend.
// Usage is never refunded when a generation later fails.
package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// ErrQuotaExceeded is returned when a user has no quota left.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// Gate checks and records quota usage.
type Gate struct {
	users  store.UserStore
	now    func() time.Time
	logger *slog.Logger
}

// NewGate creates a Gate over users.
func NewGate(users store.UserStore, logger *slog.Logger) (*Gate, error) {
	if users == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "quota_gate")),
	}, nil
}

// WithTx returns a Gate whose reads and writes join tx.
func (g *Gate) WithTx(tx *sql.Tx) *Gate {
	return &Gate{users: g.users.WithTx(tx), now: g.now, logger: g.logger}
}

// Admit reports whether userID may start one more unit of work. A due reset
// is applied and persisted as a side effect.
func (g *Gate) Admit(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load user for quota check: %w", err)
	}
	now := g.now()
	if user.ResetQuotaIfDue(now) {
		if err := g.users.UpdateQuota(ctx, user); err != nil {
			return false, fmt.Errorf("failed to persist quota reset: %w", err)
		}
	}
	return user.HasQuota(now), nil
}

// Consume re-checks admission under a row lock and records amount units.
// It returns false without recording anything when the user is out of quota.
// Callers should run it inside a transaction obtained through WithTx.
func (g *Gate) Consume(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	user, err := g.users.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to lock user for quota: %w", err)
	}
	now := g.now()
	user.ResetQuotaIfDue(now)
	if !user.HasQuota(now) {
		log.Info("quota exhausted",
			slog.String("user_id", userID.String()),
			slog.Int("used", user.UsedQuota),
			slog.Int("daily", user.DailyQuota))
		return false, nil
	}

	user.ConsumeQuota(amount, now)
	if err := g.users.UpdateQuota(ctx, user); err != nil {
		return false, fmt.Errorf("failed to record quota usage: %w", err)
	}
	return true, nil
}

// Remaining returns the units left today, or -1 when unlimited.
func (g *Gate) Remaining(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.QuotaResetAt != nil && !g.now().Before(*user.QuotaResetAt) && !user.UnlimitedQuota() {
		return user.DailyQuota, nil
	}
	return user.RemainingQuota(), nil
}
