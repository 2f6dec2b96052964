package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription records that Email receives activity notifications for a
// task. At most one row exists per (task, email).
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSubscription creates a subscription for a normalized email.
func NewSubscription(taskID uuid.UUID, email string) (*Subscription, error) {
	s := &Subscription{
		ID:        uuid.New(),
		TaskID:    taskID,
		Email:     NormalizeEmail(email),
		CreatedAt: time.Now().UTC(),
	}

	if s.TaskID == uuid.Nil {
		return nil, NewValidationError("task_id", "cannot be empty", ErrInvalidID)
	}
	if s.Email == "" {
		return nil, NewValidationError("email", "is required", ErrEmptyEmail)
	}
	if !validateEmailFormat(s.Email) {
		return nil, NewValidationError("email", "has invalid format", ErrInvalidEmail)
	}

	return s, nil
}
