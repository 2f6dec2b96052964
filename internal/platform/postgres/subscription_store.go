package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/phrazzld/jiralike-api/internal/store"
)

// PostgresSubscriptionStore implements the store.SubscriptionStore interface
// over the email_notifications table.
type PostgresSubscriptionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubscriptionStore creates a new PostgreSQL implementation of the SubscriptionStore interface.
func NewPostgresSubscriptionStore(db store.DBTX, logger *slog.Logger) *PostgresSubscriptionStore {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor precondition
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSubscriptionStore{
		db:     db,
		logger: logger.With(slog.String("component", "subscription_store")),
	}
}

var _ store.SubscriptionStore = (*PostgresSubscriptionStore)(nil)

// WithTx implements store.SubscriptionStore.WithTx
func (s *PostgresSubscriptionStore) WithTx(tx *sql.Tx) store.SubscriptionStore {
	return &PostgresSubscriptionStore{db: tx, logger: s.logger}
}

// Add implements store.SubscriptionStore.Add.
// The unique (task_id, email) constraint makes concurrent adds of the same
// address collapse into one row.
func (s *PostgresSubscriptionStore) Add(ctx context.Context, sub *domain.Subscription) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO email_notifications (id, task_id, email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (task_id, email) DO NOTHING
	`, sub.ID, sub.TaskID, sub.Email, sub.CreatedAt)
	if err != nil {
		log.Error("failed to add subscription",
			slog.String("error", err.Error()),
			slog.String("task_id", sub.TaskID.String()))
		return false, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if n > 0 {
		log.Debug("subscription added", slog.String("task_id", sub.TaskID.String()))
	}
	return n > 0, nil
}

// ListEmails implements store.SubscriptionStore.ListEmails
func (s *PostgresSubscriptionStore) ListEmails(ctx context.Context, taskID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email FROM email_notifications
		WHERE task_id = $1
		ORDER BY created_at, id
	`, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
