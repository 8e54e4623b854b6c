package storage

import (
	"context"

	"ezfin/internal/core"
)

// Store is the user-scoped persistence port. Every read and write is filtered
// by the owning user id; rows of other users are invisible.
type Store interface {
	CategoryStore
	TransactionStore
	SubscriptionStore
	GoalStore
	AggregateReader

	Ping(ctx context.Context) error
	Close() error
}

type CategoryStore interface {
	// HasCategories reports whether the user has at least one category row.
	HasCategories(ctx context.Context, userID string) (bool, error)
	// InsertCategories inserts all rows in a single database transaction.
	InsertCategories(ctx context.Context, userID string, cats []core.NewCategory) error
	CreateCategory(ctx context.Context, userID string, c core.NewCategory) (core.Category, error)
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
	// DeleteCategory returns core.ErrNotFound when no row matched.
	DeleteCategory(ctx context.Context, userID, id string) error
	// ListCategories orders by name ascending.
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
}

type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, userID string, s core.NewSubscription) (core.Subscription, error)
	// ListSubscriptions orders by next due date ascending.
	ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error)
	// ActiveSubscriptionsDue scans all users for active subscriptions with
	// next_due_at in [from, to].
	ActiveSubscriptionsDue(ctx context.Context, from, to core.Date) ([]core.Subscription, error)
}

type GoalStore interface {
	CreateGoal(ctx context.Context, userID string, g core.NewGoal) (core.Goal, error)
	// ListGoals orders by creation time ascending.
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
}

type AggregateReader interface {
	MonthSummary(ctx context.Context, userID string, from, to core.Date) (core.MonthSummary, error)
	TopCategories(ctx context.Context, userID string, from, to core.Date, limit int) ([]core.CategoryTotal, error)
	RecentTransactions(ctx context.Context, userID string, f core.RecentFilter) ([]core.RecentTransaction, error)
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > core.MaxListLimit {
		return core.MaxListLimit
	}
	return limit
}
