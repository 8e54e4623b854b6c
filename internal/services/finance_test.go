package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezfin/internal/core"
	"ezfin/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ezfin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type recordingPublisher struct {
	mu   sync.Mutex
	err  error
	txs  []core.Transaction
	subs []core.Subscription
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, _ string, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.txs = append(p.txs, tx)
	return nil
}

func (p *recordingPublisher) PublishSubscriptionReminder(_ context.Context, sub core.Subscription, _ core.Date) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subs = append(p.subs, sub)
	return nil
}

func TestFinance_RequiresUser(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService(newTestStore(t), nil)

	checks := map[string]error{
		"bootstrap": svc.EnsureDefaultCategories(ctx, ""),
		"delete":    svc.DeleteCategory(ctx, "", "x"),
	}
	_, checks["transaction"] = svc.CreateTransaction(ctx, "", core.TransactionInput{})
	_, checks["subscription"] = svc.CreateSubscription(ctx, "", core.SubscriptionInput{})
	_, checks["goal"] = svc.CreateGoal(ctx, "", core.GoalInput{})
	_, checks["category"] = svc.CreateCategory(ctx, "", core.CategoryInput{})
	_, checks["list categories"] = svc.ListCategories(ctx, "")
	_, checks["list subscriptions"] = svc.ListSubscriptions(ctx, "")
	_, checks["list goals"] = svc.ListGoals(ctx, "")
	_, checks["recent"] = svc.RecentTransactions(ctx, "", core.RecentFilter{})

	for name, err := range checks {
		assert.ErrorIs(t, err, core.ErrUnauthorized, name)
	}
}

func TestFinance_EnsureDefaultCategoriesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService(newTestStore(t), nil)

	var changed []string
	svc.OnChange(func(userID string) { changed = append(changed, userID) })

	require.NoError(t, svc.EnsureDefaultCategories(ctx, "u1"))
	require.NoError(t, svc.EnsureDefaultCategories(ctx, "u1"))

	cats, err := svc.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cats, 12)
	assert.Equal(t, []string{"u1"}, changed, "only the first call inserts")

	var income, expense int
	for _, c := range cats {
		switch c.Type {
		case core.Income:
			income++
		case core.Expense:
			expense++
		}
	}
	assert.Equal(t, 4, income)
	assert.Equal(t, 8, expense)
}

func TestFinance_CreateTransaction(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewFinanceService(newTestStore(t), pub)

	var changed int
	svc.OnChange(func(string) { changed++ })

	cat, err := svc.CreateCategory(ctx, "u1", core.CategoryInput{Name: " Mercado ", Type: "expense"})
	require.NoError(t, err)
	assert.Equal(t, "Mercado", cat.Name)

	tx, err := svc.CreateTransaction(ctx, "u1", core.TransactionInput{
		Type:        "expense",
		Amount:      "12.345",
		OccurredAt:  "2024-03-10",
		CategoryID:  cat.ID,
		Description: "  ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1235), tx.Amount.Cents)
	assert.Nil(t, tx.Description)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, cat.ID, *tx.CategoryID)

	require.Len(t, pub.txs, 1)
	assert.Equal(t, tx.ID, pub.txs[0].ID)
	assert.Equal(t, 2, changed)
}

func TestFinance_CreateTransactionRejectsForeignCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewFinanceService(store, nil)

	other, err := svc.CreateCategory(ctx, "u2", core.CategoryInput{Name: "Theirs", Type: "expense"})
	require.NoError(t, err)

	for _, id := range []string{other.ID, "does-not-exist"} {
		_, err := svc.CreateTransaction(ctx, "u1", core.TransactionInput{
			Type:       "expense",
			Amount:     "10",
			OccurredAt: "2024-03-10",
			CategoryID: id,
		})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "categoryId", verr.Field)
	}

	recent, err := svc.RecentTransactions(ctx, "u1", core.RecentFilter{})
	require.NoError(t, err)
	assert.Empty(t, recent, "nothing is written on a rejected category")
}

func TestFinance_PublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService(newTestStore(t), &recordingPublisher{err: errors.New("broker down")})

	tx, err := svc.CreateTransaction(ctx, "u1", core.TransactionInput{
		Type:       "income",
		Amount:     "3000",
		OccurredAt: "2024-03-01",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
}

func TestFinance_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService(newTestStore(t), nil)

	tests := []struct {
		name  string
		in    core.TransactionInput
		field string
	}{
		{"zero amount", core.TransactionInput{Type: "expense", Amount: "0", OccurredAt: "2024-01-01"}, "amount"},
		{"negative amount", core.TransactionInput{Type: "expense", Amount: "-5", OccurredAt: "2024-01-01"}, "amount"},
		{"non numeric amount", core.TransactionInput{Type: "expense", Amount: "abc", OccurredAt: "2024-01-01"}, "amount"},
		{"impossible date", core.TransactionInput{Type: "expense", Amount: "1", OccurredAt: "2024-02-30"}, "occurredAt"},
		{"bad month", core.TransactionInput{Type: "expense", Amount: "1", OccurredAt: "2024-13-01"}, "occurredAt"},
		{"unknown type", core.TransactionInput{Type: "transfer", Amount: "1", OccurredAt: "2024-01-01"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, "u1", tt.in)
			require.ErrorIs(t, err, core.ErrValidation)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := svc.CreateSubscription(ctx, "u1", core.SubscriptionInput{Name: "Netflix", Amount: "9.99", BillingCycle: "weekly", NextDueAt: "2024-01-01"})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = svc.CreateGoal(ctx, "u1", core.GoalInput{Name: "  ", TargetAmount: "100"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestFinance_DeleteCategoryKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewFinanceService(store, nil)

	cat, err := svc.CreateCategory(ctx, "u1", core.CategoryInput{Name: "Casa", Type: "expense"})
	require.NoError(t, err)
	tx, err := svc.CreateTransaction(ctx, "u1", core.TransactionInput{
		Type: "expense", Amount: "50", OccurredAt: "2024-03-02", CategoryID: cat.ID,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, "u2", cat.ID), core.ErrNotFound)
	require.NoError(t, svc.DeleteCategory(ctx, "u1", cat.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, "u1", cat.ID), core.ErrNotFound)

	got, err := store.GetTransaction(ctx, "u1", tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestFinance_ListsAreOrdered(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService(newTestStore(t), nil)

	for _, in := range []core.SubscriptionInput{
		{Name: "Gym", Amount: "30", BillingCycle: "monthly", NextDueAt: "2024-04-20"},
		{Name: "Domain", Amount: "12", BillingCycle: "yearly", NextDueAt: "2024-04-02"},
	} {
		_, err := svc.CreateSubscription(ctx, "u1", in)
		require.NoError(t, err)
	}
	subs, err := svc.ListSubscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Domain", subs[0].Name)
	assert.True(t, subs[0].IsActive)

	for _, name := range []string{"Emergency", "Trip"} {
		_, err := svc.CreateGoal(ctx, "u1", core.GoalInput{Name: name, TargetAmount: "1000", DueAt: "2025-01-01"})
		require.NoError(t, err)
	}
	goals, err := svc.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "Emergency", goals[0].Name)
	assert.Equal(t, int64(0), goals[0].CurrentAmount.Cents)
	require.NotNil(t, goals[0].DueAt)
	assert.Equal(t, "2025-01-01", goals[0].DueAt.String())
}
