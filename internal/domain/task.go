package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values. A task starts open; closed is terminal.
const (
	TaskStatusOpen   TaskStatus = "open"
	TaskStatusClosed TaskStatus = "closed"
)

// Field limits for tasks.
const (
	MaxHeadlineLength    = 255
	MaxDescriptionLength = 10000
)

// Task is the primary unit of work being tracked.
// OwnerID is invalid once the owning user has been deleted.
type Task struct {
	ID            uuid.UUID     `json:"id"`
	Headline      string        `json:"headline"`
	Description   string        `json:"description"`
	Status        TaskStatus    `json:"status"`
	OwnerID       uuid.NullUUID `json:"owner_id"`
	OwnerUsername string        `json:"owner_username,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewTask creates an open task owned by ownerID.
func NewTask(ownerID uuid.UUID, headline, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Headline:    strings.TrimSpace(headline),
		Description: strings.TrimSpace(description),
		Status:      TaskStatusOpen,
		OwnerID:     uuid.NullUUID{UUID: ownerID, Valid: ownerID != uuid.Nil},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.Headline == "" {
		return NewValidationError("headline", "is required", nil)
	}
	if utf8.RuneCountInString(t.Headline) > MaxHeadlineLength {
		return NewValidationError("headline", "is too long", nil)
	}
	if t.Description == "" {
		return NewValidationError("description", "is required", nil)
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return NewValidationError("description", "is too long", nil)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "must be open or closed", ErrInvalidTaskStatus)
	}
	return nil
}

// IsOpen reports whether the task still accepts comments.
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusOpen
}

// IsOwnedBy reports whether userID is the task's current owner.
// Anonymous tasks are owned by nobody.
func (t *Task) IsOwnedBy(userID uuid.UUID) bool {
	return t.OwnerID.Valid && t.OwnerID.UUID == userID
}

// Close moves the task to its terminal state.
func (t *Task) Close() error {
	if t.Status == TaskStatusClosed {
		return ErrTaskAlreadyClosed
	}
	t.Status = TaskStatusClosed
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusClosed:
		return true
	default:
		return false
	}
}

// ParseTaskStatus converts a query value into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", NewValidationError("status", "must be open or closed", ErrInvalidTaskStatus)
	}
	return status, nil
}

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Query   string
	Status  TaskStatus
	OwnerID uuid.UUID
}

// TaskDetail is the read projection of a task with its thread and file.
type TaskDetail struct {
	Task
	Comments []*Comment `json:"comments"`
	File     *TaskFile  `json:"file"`
}
