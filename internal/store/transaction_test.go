package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLTxManager_RunInTx(t *testing.T) {
	errWork := errors.New("insert failed")
	errBegin := errors.New("connection reset")
	errCommit := errors.New("serialization failure")
	errRollback := errors.New("connection lost")

	tests := []struct {
		name       string
		expect     func(mock sqlmock.Sqlmock)
		work       TxFn
		wantErrIs  error
		wantErrMsg string
	}{
		{
			name: "commits on success",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO tasks").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			work: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, "INSERT INTO tasks (id) VALUES ($1)", 1)
				return err
			},
		},
		{
			name: "rolls back and returns the work error",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			work:      func(context.Context, *sql.Tx) error { return errWork },
			wantErrIs: errWork,
		},
		{
			name: "begin failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errBegin)
			},
			work:       func(context.Context, *sql.Tx) error { return nil },
			wantErrIs:  errBegin,
			wantErrMsg: "failed to begin transaction",
		},
		{
			name: "commit failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(errCommit)
			},
			work:       func(context.Context, *sql.Tx) error { return nil },
			wantErrIs:  errCommit,
			wantErrMsg: "failed to commit transaction",
		},
		{
			name: "rollback failure keeps the original error",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(errRollback)
			},
			work:       func(context.Context, *sql.Tx) error { return errWork },
			wantErrIs:  errWork,
			wantErrMsg: "connection lost",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tc.expect(mock)

			var m TxManager = NewSQLTxManager(db)
			err = m.RunInTx(context.Background(), tc.work)

			if tc.wantErrIs == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErrIs)
				if tc.wantErrMsg != "" {
					assert.Contains(t, err.Error(), tc.wantErrMsg)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLTxManager_RunInTx_Panic(t *testing.T) {
	for _, rbErr := range []error{nil, errors.New("rollback failed")} {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(rbErr)

		assert.PanicsWithValue(t, "boom", func() {
			_ = NewSQLTxManager(db).RunInTx(context.Background(), func(context.Context, *sql.Tx) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	}
}

func TestNewSQLTxManager_NilDB(t *testing.T) {
	assert.Panics(t, func() { NewSQLTxManager(nil) })
}
