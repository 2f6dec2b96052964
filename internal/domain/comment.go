package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxCommentLength bounds Comment.Text.
const MaxCommentLength = 10000

// Comment is a message in a task's thread.
type Comment struct {
	ID            uuid.UUID     `json:"id"`
	TaskID        uuid.UUID     `json:"task_id"`
	OwnerID       uuid.NullUUID `json:"owner_id"`
	OwnerUsername string        `json:"owner_username,omitempty"`
	Text          string        `json:"text"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewComment creates a comment by ownerID on taskID.
func NewComment(taskID, ownerID uuid.UUID, text string) (*Comment, error) {
	c := &Comment{
		ID:        uuid.New(),
		TaskID:    taskID,
		OwnerID:   uuid.NullUUID{UUID: ownerID, Valid: ownerID != uuid.Nil},
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks if the Comment has valid data.
func (c *Comment) Validate() error {
	if c.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if c.TaskID == uuid.Nil {
		return NewValidationError("task_id", "cannot be empty", ErrInvalidID)
	}
	if c.Text == "" {
		return NewValidationError("text", "is required", nil)
	}
	if utf8.RuneCountInString(c.Text) > MaxCommentLength {
		return NewValidationError("text", "is too long", nil)
	}
	return nil
}
