package mocks

import (
	"context"

	"github.com/phrazzld/jiralike-api/internal/store"
)

// MockTxManager implements store.TxManager over a MemoryStore. The work
// function receives a nil *sql.Tx, which the memory stores ignore. When it
// fails, the store is restored to its state before the call. Concurrent
// transactions are not isolated from each other.
type MockTxManager struct {
	Store *MemoryStore

	// RunInTxFn overrides the default behavior when set.
	RunInTxFn func(ctx context.Context, fn store.TxFn) error

	// Calls counts RunInTx invocations.
	Calls int
}

var _ store.TxManager = (*MockTxManager)(nil)

// NewMockTxManager creates a transaction manager for s.
func NewMockTxManager(s *MemoryStore) *MockTxManager {
	return &MockTxManager{Store: s}
}

// RunInTx implements store.TxManager.
func (m *MockTxManager) RunInTx(ctx context.Context, fn store.TxFn) error {
	m.Calls++
	if m.RunInTxFn != nil {
		return m.RunInTxFn(ctx, fn)
	}

	var before snapshot
	if m.Store != nil {
		before = m.Store.snapshot()
	}
	if err := fn(ctx, nil); err != nil {
		if m.Store != nil {
			m.Store.restore(before)
		}
		return err
	}
	return nil
}
