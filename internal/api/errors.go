package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/vidgen-api/internal/api/shared"
	"github.com/phrazzld/vidgen-api/internal/domain"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/phrazzld/vidgen-api/internal/service"
	"github.com/phrazzld/vidgen-api/internal/service/auth"
	"github.com/phrazzld/vidgen-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrUserNotActive):
		return http.StatusForbidden

	case errors.Is(err, service.ErrNotOwned),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrTemplateNotAvailable),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, generation.ErrContentBlocked):
		return http.StatusBadRequest

	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	case errors.Is(err, generation.ErrScriptWriterDisabled),
		errors.Is(err, service.ErrSchedulerBusy):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, domain.ErrUserNotActive):
		return "Account is not active"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrVideoTaskNotFound), errors.Is(err, service.ErrNotOwned):
		return "Task not found"
	case errors.Is(err, store.ErrTemplateNotFound):
		return "Template not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"

	case errors.Is(err, domain.ErrTemplateNotAvailable):
		return "Template does not exist or is not active"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation):
		// Wrapped validation errors carry only fixed domain messages.
		return err.Error()
	case errors.Is(err, generation.ErrContentBlocked):
		return "The topic was rejected by content filters"

	case errors.Is(err, quota.ErrQuotaExceeded):
		return "Daily generation quota exceeded"
	case errors.Is(err, generation.ErrScriptWriterDisabled):
		return "Script generation is not available"
	case errors.Is(err, service.ErrSchedulerBusy):
		return service.ErrSchedulerBusy.Error()

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// fallback replaces the generic message of 500 replies.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator errors into a short message that
// names the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		if field == "" {
			field = strings.ToLower(fe.StructField())
		}
		return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(fe.Tag(), fe.Param()))
	}
	return "Validation error"
}

func validationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "must be at least " + param
	case "max", "lte":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + param
	case "uuid", "uuid4":
		return "must be a UUID"
	case "url":
		return "must be a URL"
	default:
		return "validation failed"
	}
}
