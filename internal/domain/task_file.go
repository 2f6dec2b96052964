package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMimeType is used when the content type of an upload is unknown.
const DefaultMimeType = "application/octet-stream"

// Column limits of task_files.
const (
	MaxFileNameLength = 255
	MaxMimeTypeLength = 255
)

// TaskFile is the single attachment of a task. The bytes live in file
// storage under Name; uploading another file replaces the record.
type TaskFile struct {
	ID            uuid.UUID     `json:"id"`
	TaskID        uuid.UUID     `json:"task_id"`
	OwnerID       uuid.NullUUID `json:"owner_id"`
	OwnerUsername string        `json:"owner_username,omitempty"`
	Name          string        `json:"name"`
	MimeType      string        `json:"mime_type"`
	Size          int64         `json:"size"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewTaskFile creates the record for an upload by ownerID.
func NewTaskFile(taskID, ownerID uuid.UUID, name, mimeType string, size int64) (*TaskFile, error) {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	f := &TaskFile{
		ID:        uuid.New(),
		TaskID:    taskID,
		OwnerID:   uuid.NullUUID{UUID: ownerID, Valid: ownerID != uuid.Nil},
		Name:      SanitizeFileName(name),
		MimeType:  mimeType,
		Size:      size,
		CreatedAt: time.Now().UTC(),
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// Validate checks if the TaskFile has valid data.
func (f *TaskFile) Validate() error {
	if f.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if f.TaskID == uuid.Nil {
		return NewValidationError("task_id", "cannot be empty", ErrInvalidID)
	}
	if f.Name == "" {
		return NewValidationError("name", "is required", nil)
	}
	if len(f.Name) > MaxFileNameLength {
		return NewValidationError("name", "is too long", nil)
	}
	if len(f.MimeType) > MaxMimeTypeLength {
		return NewValidationError("mime_type", "is too long", nil)
	}
	if f.Size < 0 {
		return NewValidationError("size", "cannot be negative", nil)
	}
	return nil
}

// SanitizeFileName strips any directory component from a client supplied
// name so that files can only be addressed inside the storage root.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := path.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
