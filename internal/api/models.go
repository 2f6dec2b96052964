package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// ExpiresAt is the RFC 3339 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Headline    string `json:"headline"    validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=10000"`
}

// CreateCommentRequest is the body of POST /tasks/{id}/comments.
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// TaskResponse is the JSON form of a task.
type TaskResponse struct {
	ID            string    `json:"id"`
	Headline      string    `json:"headline"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	OwnerID       *string   `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CommentResponse is the JSON form of a comment.
type CommentResponse struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	OwnerID       *string   `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

// FileResponse describes a task attachment.
type FileResponse struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	OwnerID       *string   `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	Name          string    `json:"name"`
	MimeType      string    `json:"mime_type"`
	Size          int64     `json:"size"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskDetailResponse is a task with its thread and attachment.
type TaskDetailResponse struct {
	TaskResponse
	Comments []CommentResponse `json:"comments"`
	File     *FileResponse     `json:"file"`
}

func nullableID(id uuid.NullUUID) *string {
	if !id.Valid {
		return nil
	}
	s := id.UUID.String()
	return &s
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:            t.ID.String(),
		Headline:      t.Headline,
		Description:   t.Description,
		Status:        string(t.Status),
		OwnerID:       nullableID(t.OwnerID),
		OwnerUsername: t.OwnerUsername,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}

func commentToResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:            c.ID.String(),
		TaskID:        c.TaskID.String(),
		OwnerID:       nullableID(c.OwnerID),
		OwnerUsername: c.OwnerUsername,
		Text:          c.Text,
		CreatedAt:     c.CreatedAt,
	}
}

func commentsToResponse(comments []*domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentToResponse(c))
	}
	return out
}

func fileToResponse(f *domain.TaskFile) FileResponse {
	return FileResponse{
		ID:            f.ID.String(),
		TaskID:        f.TaskID.String(),
		OwnerID:       nullableID(f.OwnerID),
		OwnerUsername: f.OwnerUsername,
		Name:          f.Name,
		MimeType:      f.MimeType,
		Size:          f.Size,
		CreatedAt:     f.CreatedAt,
	}
}

func detailToResponse(d *domain.TaskDetail) TaskDetailResponse {
	resp := TaskDetailResponse{
		TaskResponse: taskToResponse(&d.Task),
		Comments:     commentsToResponse(d.Comments),
	}
	if d.File != nil {
		f := fileToResponse(d.File)
		resp.File = &f
	}
	return resp
}
