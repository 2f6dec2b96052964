package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
// Read methods populate OwnerUsername from the owning user, if any.
type TaskStore interface {
	// Create saves a new task.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUpdate is GetByID with a row lock held until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching filter, newest first.
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)

	// UpdateStatus persists task.Status and task.UpdatedAt.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateStatus(ctx context.Context, task *domain.Task) error

	// Delete removes a task together with its comments, file record and
	// subscriptions. Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// CommentStore defines the interface for comment persistence.
type CommentStore interface {
	// Create saves a new comment. Returns ErrTaskNotFound when the task
	// is gone.
	Create(ctx context.Context, comment *domain.Comment) error

	// ListByTask returns the task's comments oldest first with author names.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error)

	// WithTx returns a new CommentStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CommentStore
}

// TaskFileStore defines the interface for task attachment records.
type TaskFileStore interface {
	// Upsert stores file as the task's only attachment, replacing any
	// previous record. file.ID is updated to the persisted row's ID.
	Upsert(ctx context.Context, file *domain.TaskFile) error

	// GetByTask returns the task's attachment record.
	// Returns ErrTaskFileNotFound if the task has none.
	GetByTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskFile, error)

	// WithTx returns a new TaskFileStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskFileStore
}

// SubscriptionStore defines the interface for notification subscriptions.
type SubscriptionStore interface {
	// Add subscribes email to the task. It reports whether a new row was
	// written; adding an existing subscription is not an error.
	Add(ctx context.Context, sub *domain.Subscription) (bool, error)

	// ListEmails returns the task's subscriber emails in subscription order.
	ListEmails(ctx context.Context, taskID uuid.UUID) ([]string, error)

	// WithTx returns a new SubscriptionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SubscriptionStore
}
