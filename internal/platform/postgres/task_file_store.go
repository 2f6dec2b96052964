package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/phrazzld/jiralike-api/internal/store"
)

// PostgresTaskFileStore implements the store.TaskFileStore interface.
type PostgresTaskFileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskFileStore creates a new PostgreSQL implementation of the TaskFileStore interface.
func NewPostgresTaskFileStore(db store.DBTX, logger *slog.Logger) *PostgresTaskFileStore {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor precondition
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskFileStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_file_store")),
	}
}

var _ store.TaskFileStore = (*PostgresTaskFileStore)(nil)

// WithTx implements store.TaskFileStore.WithTx
func (s *PostgresTaskFileStore) WithTx(tx *sql.Tx) store.TaskFileStore {
	return &PostgresTaskFileStore{db: tx, logger: s.logger}
}

// Upsert implements store.TaskFileStore.Upsert.
// The existing row keeps its ID; every other column is overwritten.
func (s *PostgresTaskFileStore) Upsert(ctx context.Context, file *domain.TaskFile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := file.Validate(); err != nil {
		return err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO task_files (id, task_id, owner_id, name, mime_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (task_id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    name = EXCLUDED.name,
		    mime_type = EXCLUDED.mime_type,
		    size = EXCLUDED.size,
		    created_at = EXCLUDED.created_at
		RETURNING id
	`,
		file.ID,
		file.TaskID,
		file.OwnerID,
		file.Name,
		file.MimeType,
		file.Size,
		file.CreatedAt,
	).Scan(&file.ID)
	if err != nil {
		log.Error("failed to upsert task file",
			slog.String("error", err.Error()),
			slog.String("task_id", file.TaskID.String()))
		return MapError(err)
	}

	log.Info("task file stored",
		slog.String("task_id", file.TaskID.String()),
		slog.String("name", file.Name),
		slog.Int64("size", file.Size))
	return nil
}

// GetByTask implements store.TaskFileStore.GetByTask
func (s *PostgresTaskFileStore) GetByTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskFile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var f domain.TaskFile
	err := s.db.QueryRowContext(ctx, `
		SELECT f.id, f.task_id, f.owner_id, COALESCE(u.username, ''), f.name, f.mime_type, f.size, f.created_at
		FROM task_files f
		LEFT JOIN users u ON u.id = f.owner_id
		WHERE f.task_id = $1
	`, taskID).Scan(
		&f.ID,
		&f.TaskID,
		&f.OwnerID,
		&f.OwnerUsername,
		&f.Name,
		&f.MimeType,
		&f.Size,
		&f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskFileNotFound
		}
		log.Error("failed to get task file",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	return &f, nil
}
