package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ezfin/internal/amqp"
	"ezfin/internal/core"
	"ezfin/internal/log"
	"ezfin/internal/sheets"
	"ezfin/internal/storage"
)

// LedgerExporter copies newly created transactions into the spreadsheet
// ledger. It handles transaction.created messages.
type LedgerExporter struct {
	store  storage.Store
	ledger sheets.LedgerWriter
}

func NewLedgerExporter(store storage.Store, ledger sheets.LedgerWriter) *LedgerExporter {
	return &LedgerExporter{store: store, ledger: ledger}
}

// HandleTransactionCreated loads the transaction and appends it to the
// ledger. A transaction deleted since the event was published is skipped;
// any other failure is returned so the message is redelivered.
func (e *LedgerExporter) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	tx, err := e.store.GetTransaction(ctx, msg.UserID, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction no longer exists, skipping export",
			"transaction_id", msg.TransactionID,
			"user_id", msg.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	row, err := e.ledgerRow(ctx, msg.UserID, tx)
	if err != nil {
		return err
	}

	ref, err := e.ledger.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentExport).InfoContext(ctx, "Transaction exported",
		log.NewFields().User(msg.UserID).Entity("transaction", tx.ID).Op(log.OpAppend).Add("ref", ref).Slice()...)
	return nil
}

func (e *LedgerExporter) ledgerRow(ctx context.Context, userID string, tx core.Transaction) (sheets.LedgerRow, error) {
	row := sheets.LedgerRow{
		OccurredAt:    tx.OccurredAt,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Category:      core.UncategorizedName,
		TransactionID: tx.ID,
	}
	if tx.Description != nil {
		row.Description = *tx.Description
	}
	if tx.CategoryID != nil {
		cat, err := e.store.GetCategory(ctx, userID, *tx.CategoryID)
		switch {
		case err == nil:
			row.Category = cat.Name
		case errors.Is(err, core.ErrNotFound):
		default:
			return sheets.LedgerRow{}, fmt.Errorf("load category: %w", err)
		}
	}
	return row, nil
}
