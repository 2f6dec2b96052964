package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/jiralike-api/internal/domain"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotFound is the parent of every "missing resource" error.
	// API layer should map this to HTTP 404 Not Found.
	ErrNotFound = errors.New("not found")

	// ErrTaskNotFound indicates the task does not exist.
	ErrTaskNotFound = fmt.Errorf("task %w", ErrNotFound)

	// ErrFileNotFound indicates the task has no attachment, or its content is gone.
	ErrFileNotFound = fmt.Errorf("file %w", ErrNotFound)

	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrForbidden is the parent of every permission error.
	// API layer should map this to HTTP 403 Forbidden.
	ErrForbidden = errors.New("forbidden")

	// ErrNotTaskOwner is returned when someone other than the owner closes a task.
	ErrNotTaskOwner = fmt.Errorf("%w: only the task owner can close it", ErrForbidden)

	// ErrNotSuperuser is returned when a regular user deletes a task.
	ErrNotSuperuser = fmt.Errorf("%w: only a superuser can delete tasks", ErrForbidden)

	// ErrTaskClosed is returned when commenting on a closed task.
	ErrTaskClosed = fmt.Errorf("%w: task is closed", ErrForbidden)

	// ErrConflict is the parent of state conflicts.
	// API layer should map this to HTTP 409 Conflict.
	ErrConflict = errors.New("conflict")

	// ErrTaskAlreadyClosed is returned when closing a closed task.
	// It also matches domain.ErrTaskAlreadyClosed.
	ErrTaskAlreadyClosed = fmt.Errorf("%w: %w", ErrConflict, domain.ErrTaskAlreadyClosed)

	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = fmt.Errorf("%w: email is already registered", ErrConflict)

	// ErrInvalidCredentials is returned by Authenticate for an unknown email
	// or a wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// TaskServiceError wraps unexpected failures with the operation that hit them.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// isExpected reports whether err is one the API maps to a client status.
// Those pass through unwrapped.
func isExpected(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrUnauthorized)
}
