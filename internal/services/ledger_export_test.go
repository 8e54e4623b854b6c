package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezfin/internal/amqp"
	"ezfin/internal/core"
	"ezfin/internal/sheets/memory"
)

func TestLedgerExporter_HandleTransactionCreated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	finance := NewFinanceService(store, nil)
	ledger := memory.New()
	exporter := NewLedgerExporter(store, ledger)

	cat, err := finance.CreateCategory(ctx, "u1", core.CategoryInput{Name: "Casa", Type: "expense"})
	require.NoError(t, err)
	withCat, err := finance.CreateTransaction(ctx, "u1", core.TransactionInput{
		Type: "expense", Amount: "42,5", OccurredAt: "2024-03-03", CategoryID: cat.ID, Description: "Luz",
	})
	require.NoError(t, err)
	bare, err := finance.CreateTransaction(ctx, "u1", core.TransactionInput{
		Type: "income", Amount: "100", OccurredAt: "2024-03-04",
	})
	require.NoError(t, err)

	require.NoError(t, exporter.HandleTransactionCreated(ctx, amqp.NewTransactionCreatedMessage("u1", withCat.ID)))
	require.NoError(t, exporter.HandleTransactionCreated(ctx, amqp.NewTransactionCreatedMessage("u1", bare.ID)))
	// Redelivery of the first message.
	require.NoError(t, exporter.HandleTransactionCreated(ctx, amqp.NewTransactionCreatedMessage("u1", withCat.ID)))

	rows := ledger.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []any{"2024-03-03", "expense", "42.50", "Casa", "Luz", withCat.ID}, rows[0].Values())
	assert.Equal(t, []any{"2024-03-04", "income", "100.00", core.UncategorizedName, "", bare.ID}, rows[1].Values())
}

func TestLedgerExporter_SkipsMissingTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ledger := memory.New()
	exporter := NewLedgerExporter(store, ledger)

	tx, err := NewFinanceService(store, nil).CreateTransaction(ctx, "u1", core.TransactionInput{
		Type: "expense", Amount: "1", OccurredAt: "2024-03-03",
	})
	require.NoError(t, err)

	// Another user's message cannot read u1's row.
	require.NoError(t, exporter.HandleTransactionCreated(ctx, amqp.NewTransactionCreatedMessage("u2", tx.ID)))
	require.NoError(t, exporter.HandleTransactionCreated(ctx, amqp.NewTransactionCreatedMessage("u1", "missing")))
	assert.Empty(t, ledger.Rows())
}
