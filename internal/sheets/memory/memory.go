package memory

import (
	"context"
	"fmt"
	"sync"

	"ezfin/internal/sheets"
)

// Ledger keeps exported rows in memory.
type Ledger struct {
	mu   sync.Mutex
	rows []sheets.LedgerRow
	refs map[string]string
}

var _ sheets.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{refs: make(map[string]string)}
}

// AppendRow stores the row and returns a synthetic row reference.
func (l *Ledger) AppendRow(_ context.Context, row sheets.LedgerRow) (string, error) {
	if row.TransactionID == "" {
		return "", fmt.Errorf("ledger row without transaction id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if ref, ok := l.refs[row.TransactionID]; ok {
		return ref, nil
	}
	l.rows = append(l.rows, row)
	ref := fmt.Sprintf("mem:%d", len(l.rows))
	l.refs[row.TransactionID] = ref
	return ref, nil
}

// Rows returns a copy of everything appended so far.
func (l *Ledger) Rows() []sheets.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.LedgerRow(nil), l.rows...)
}
