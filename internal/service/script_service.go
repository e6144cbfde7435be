package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/platform/logger"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// ScriptService drafts video scripts with a language model.
type ScriptService interface {
	// GenerateScript admits the user against the quota, calls the writer and
	// consumes one unit only when a script came back.
	GenerateScript(ctx context.Context, userID uuid.UUID, req generation.ScriptRequest) (string, error)
}

type scriptServiceImpl struct {
	db     *sql.DB
	users  store.UserStore
	gate   *quota.Gate
	writer generation.ScriptWriter
	logger *slog.Logger
}

// NewScriptService creates a ScriptService. A nil writer yields a service
// that always returns generation.ErrScriptWriterDisabled.
func NewScriptService(
	db *sql.DB,
	users store.UserStore,
	gate *quota.Gate,
	writer generation.ScriptWriter,
	logger *slog.Logger,
) (ScriptService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if users == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if gate == nil {
		return nil, errors.New("quota gate cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &scriptServiceImpl{
		db:     db,
		users:  users,
		gate:   gate,
		writer: writer,
		logger: logger.With("component", "script_service"),
	}, nil
}

func (s *scriptServiceImpl) GenerateScript(
	ctx context.Context,
	userID uuid.UUID,
	req generation.ScriptRequest,
) (string, error) {
	if s.writer == nil {
		return "", generation.ErrScriptWriterDisabled
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" || len([]rune(req.Topic)) > domain.MaxPromptLength {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidPrompt)
	}
	if req.DurationSeconds == 0 {
		req.DurationSeconds = domain.DefaultDurationSeconds
	}
	if req.DurationSeconds < domain.MinDurationSeconds || req.DurationSeconds > domain.MaxDurationSeconds {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidDuration)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", newServiceError("script", "generate", "failed to load user", err)
	}
	if !user.IsActive() {
		return "", domain.ErrUserNotActive
	}
	admitted, err := s.gate.Admit(ctx, userID)
	if err != nil {
		return "", newServiceError("script", "generate", "quota check failed", err)
	}
	if !admitted {
		return "", quota.ErrQuotaExceeded
	}

	script, err := s.writer.WriteScript(ctx, req)
	if err != nil {
		return "", newServiceError("script", "generate", "script writer failed", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := s.gate.WithTx(tx).Consume(ctx, userID, 1)
		return err
	})
	if err != nil {
		// The script was produced; an accounting failure is logged, not surfaced.
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record script quota usage",
			"error", err,
			"user_id", userID)
	}
	return script, nil
}
