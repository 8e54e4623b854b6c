// Package sheets exports transactions to a spreadsheet ledger.
package sheets

import (
	"context"

	"ezfin/internal/core"
)

// LedgerRow is one exported transaction. Column order is fixed:
// occurred at, type, amount, category, description, transaction id.
type LedgerRow struct {
	OccurredAt    core.Date
	Type          core.TransactionType
	Amount        core.Money
	Category      string
	Description   string
	TransactionID string
}

// Values renders the row as spreadsheet cells.
func (r LedgerRow) Values() []any {
	return []any{
		r.OccurredAt.String(),
		string(r.Type),
		r.Amount.String(),
		r.Category,
		r.Description,
		r.TransactionID,
	}
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends rows. Appending a transaction id that is already
	// present returns the existing reference instead of a second row.
	LedgerWriter interface {
		AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}
)
