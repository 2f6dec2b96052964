package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/jiralike-api/internal/platform/logger"
)

// TxFn is a unit of work run inside a transaction. Returning an error rolls
// the transaction back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// TxManager runs units of work atomically. Services depend on it rather
// than on *sql.DB so that they can be exercised against in-memory stores.
type TxManager interface {
	RunInTx(ctx context.Context, fn TxFn) error
}

// SQLTxManager is a TxManager backed by a database connection pool.
type SQLTxManager struct {
	db *sql.DB
}

// NewSQLTxManager creates a TxManager for db.
func NewSQLTxManager(db *sql.DB) *SQLTxManager {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor precondition
	}
	return &SQLTxManager{db: db}
}

// RunInTx begins a transaction, runs fn and commits. A panic in fn rolls
// back and is re-raised.
func (m *SQLTxManager) RunInTx(ctx context.Context, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback after panic failed",
				slog.String("error", rbErr.Error()),
				slog.Any("panic", p))
		}
		panic(p) // ALLOW-PANIC: re-raise after rollback
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback failed",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		log.Debug("transaction rolled back", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
