package store

import (
	"sync"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// TransactionLog is a thread-safe append-only log of fills in the order
// they happened. Entries are never mutated or removed.
type TransactionLog struct {
	mu  sync.RWMutex
	txs []domain.Transaction
}

// NewTransactionLog creates an empty TransactionLog.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{txs: make([]domain.Transaction, 0)}
}

// Append adds a transaction to the end of the log.
func (l *TransactionLog) Append(tx domain.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.txs = append(l.txs, tx)
}

// List returns all transactions in chronological order.
// Returns an empty slice if nothing has been filled yet.
func (l *TransactionLog) List() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]domain.Transaction, len(l.txs))
	copy(result, l.txs)
	return result
}

// Len returns the number of logged transactions.
func (l *TransactionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs)
}
