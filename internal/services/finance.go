package services

import (
	"context"
	"errors"
	"fmt"

	"ezfin/internal/core"
	"ezfin/internal/log"
	"ezfin/internal/storage"
)

// EventPublisher announces committed mutations to other processes.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, userID string, tx core.Transaction) error
}

// FinanceService runs the user-scoped mutations and list reads against the
// store and publishes events for new transactions.
type FinanceService struct {
	store      storage.Store
	events     EventPublisher
	invalidate func(userID string)
}

// NewFinanceService wires the service. events may be nil, in which case no
// event is published.
func NewFinanceService(store storage.Store, events EventPublisher) *FinanceService {
	return &FinanceService{store: store, events: events}
}

// OnChange registers a hook called with the user id after every successful
// mutation. The dashboard uses it to drop cached pages.
func (s *FinanceService) OnChange(fn func(userID string)) {
	s.invalidate = fn
}

func (s *FinanceService) changed(userID string) {
	if s.invalidate != nil {
		s.invalidate(userID)
	}
}

// EnsureDefaultCategories seeds the default category set for a user that has
// none. Two concurrent first visits can both see no categories; the second
// insert then duplicates the defaults, which is accepted.
func (s *FinanceService) EnsureDefaultCategories(ctx context.Context, userID string) error {
	if userID == "" {
		return core.ErrUnauthorized
	}
	has, err := s.store.HasCategories(ctx, userID)
	if err != nil {
		return fmt.Errorf("check categories: %w", err)
	}
	if has {
		return nil
	}
	if err := s.store.InsertCategories(ctx, userID, core.DefaultCategories()); err != nil {
		return fmt.Errorf("insert default categories: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentFinance).InfoContext(ctx, "Bootstrapped default categories",
		log.NewFields().User(userID).Op(log.OpBootstrap).Slice()...)
	s.changed(userID)
	return nil
}

func (s *FinanceService) CreateTransaction(ctx context.Context, userID string, in core.TransactionInput) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, core.ErrUnauthorized
	}
	nt, err := in.Normalize()
	if err != nil {
		return core.Transaction{}, err
	}
	if nt.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, userID, *nt.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Transaction{}, core.NewValidationError("categoryId", "does not exist")
			}
			return core.Transaction{}, fmt.Errorf("check category: %w", err)
		}
	}

	tx, err := s.store.CreateTransaction(ctx, userID, nt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(userID)

	logger := log.FromContext(ctx).WithComponent(log.ComponentFinance)
	fields := log.NewFields().User(userID).Entity("transaction", tx.ID)
	logger.InfoContext(ctx, "Transaction created",
		fields.Op(log.OpCreate).Add(log.FieldType, tx.Type).Add(log.FieldAmount, tx.Amount.String()).Slice()...)

	// The row is committed; a failed publish only loses the export.
	if s.events != nil {
		if err := s.events.PublishTransactionCreated(ctx, userID, tx); err != nil {
			logger.ErrorContext(ctx, "Failed to publish transaction event",
				log.NewFields().User(userID).Entity("transaction", tx.ID).Op(log.OpPublish).Err(err).Slice()...)
		}
	}
	return tx, nil
}

func (s *FinanceService) CreateSubscription(ctx context.Context, userID string, in core.SubscriptionInput) (core.Subscription, error) {
	if userID == "" {
		return core.Subscription{}, core.ErrUnauthorized
	}
	ns, err := in.Normalize()
	if err != nil {
		return core.Subscription{}, err
	}
	sub, err := s.store.CreateSubscription(ctx, userID, ns)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}
	s.changed(userID)
	return sub, nil
}

func (s *FinanceService) CreateGoal(ctx context.Context, userID string, in core.GoalInput) (core.Goal, error) {
	if userID == "" {
		return core.Goal{}, core.ErrUnauthorized
	}
	ng, err := in.Normalize()
	if err != nil {
		return core.Goal{}, err
	}
	g, err := s.store.CreateGoal(ctx, userID, ng)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	s.changed(userID)
	return g, nil
}

func (s *FinanceService) CreateCategory(ctx context.Context, userID string, in core.CategoryInput) (core.Category, error) {
	if userID == "" {
		return core.Category{}, core.ErrUnauthorized
	}
	nc, err := in.Normalize()
	if err != nil {
		return core.Category{}, err
	}
	c, err := s.store.CreateCategory(ctx, userID, nc)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.changed(userID)
	return c, nil
}

// DeleteCategory removes a category; its transactions stay and lose the
// reference.
func (s *FinanceService) DeleteCategory(ctx context.Context, userID, id string) error {
	if userID == "" {
		return core.ErrUnauthorized
	}
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	s.changed(userID)
	log.FromContext(ctx).WithComponent(log.ComponentFinance).InfoContext(ctx, "Category deleted",
		log.NewFields().User(userID).Entity("category", id).Op(log.OpDelete).Slice()...)
	return nil
}

func (s *FinanceService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}
	return s.store.ListCategories(ctx, userID)
}

func (s *FinanceService) ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}
	return s.store.ListSubscriptions(ctx, userID)
}

func (s *FinanceService) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}
	return s.store.ListGoals(ctx, userID)
}

func (s *FinanceService) RecentTransactions(ctx context.Context, userID string, f core.RecentFilter) ([]core.RecentTransaction, error) {
	if userID == "" {
		return nil, core.ErrUnauthorized
	}
	return s.store.RecentTransactions(ctx, userID, f)
}

// Close closes the store.
func (s *FinanceService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close finance service: %w", err)
	}
	return nil
}
