package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/jiralike-api/internal/api/shared"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/service"
	"github.com/phrazzld/jiralike-api/internal/service/auth"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		isValidatorError(err):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, service.ErrNotTaskOwner):
		return "Only the task owner can close it"

	case errors.Is(err, service.ErrNotSuperuser):
		return "Only a superuser can delete tasks"

	case errors.Is(err, service.ErrTaskClosed):
		return "Task is closed"

	case errors.Is(err, service.ErrForbidden):
		return "Forbidden"

	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrFileNotFound):
		return "File not found"

	case errors.Is(err, service.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, service.ErrNotFound):
		return "Not found"

	case errors.Is(err, service.ErrTaskAlreadyClosed):
		return "Task is already closed"

	case errors.Is(err, service.ErrEmailTaken):
		return "Email already exists"

	case errors.Is(err, service.ErrConflict):
		return "Conflict"

	case errors.Is(err, domain.ErrValidation),
		isValidatorError(err):
		return "Validation error"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err: status from
// MapErrorToStatusCode, a safe message, and per-field reasons for validation
// failures. fallbackMsg replaces the generic message on 500s.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		msg = fallbackMsg
	}

	var opts []shared.ResponseOption
	if fields := errorFields(err); len(fields) > 0 {
		opts = append(opts, shared.WithFields(fields))
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}

// errorFields extracts field -> reason pairs from validation errors.
func errorFields(err error) map[string]string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		return map[string]string{verr.Field: verr.Reason}
	}
	return shared.ValidationFields(err)
}

func isValidatorError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
