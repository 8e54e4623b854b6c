package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezfin/internal/cache"
	"ezfin/internal/core"
	"ezfin/internal/identity"
	"ezfin/internal/storage"
)

type dashboardFixture struct {
	finance *FinanceService
	prefs   *PreferenceService
	ids     *identity.Memory
	dash    *DashboardService
	pages   *cache.LRUCache[Dashboard]
}

func newDashboardFixture(t *testing.T) dashboardFixture {
	t.Helper()
	store := newTestStore(t)
	ids := identity.NewMemory()
	finance := NewFinanceService(store, nil)
	prefs := NewPreferenceService(ids)
	pages := cache.NewLRUCache[Dashboard](16, time.Minute)
	dash := NewDashboardService(store, finance, prefs, ids, pages)
	dash.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	finance.OnChange(dash.Invalidate)
	prefs.OnChange(dash.Invalidate)
	return dashboardFixture{finance: finance, prefs: prefs, ids: ids, dash: dash, pages: pages}
}

func (f dashboardFixture) addTx(t *testing.T, user, typ, amount, date, categoryID, desc string) {
	t.Helper()
	_, err := f.finance.CreateTransaction(context.Background(), user, core.TransactionInput{
		Type: typ, Amount: amount, OccurredAt: date, CategoryID: categoryID, Description: desc,
	})
	require.NoError(t, err)
}

func TestDashboard_RequiresUser(t *testing.T) {
	f := newDashboardFixture(t)
	_, err := f.dash.Build(context.Background(), "", "2024-03")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestDashboard_FirstVisitBootstrapsCategories(t *testing.T) {
	f := newDashboardFixture(t)

	d, err := f.dash.Build(context.Background(), "u1", "2024-03")
	require.NoError(t, err)

	assert.Len(t, d.Categories, 12)
	assert.Equal(t, core.DefaultPreferences(), d.Preferences)
	assert.Equal(t, int64(0), d.Summary.Balance.Cents)
	assert.Empty(t, d.TopCategories)
	assert.Empty(t, d.DisplayName)
}

func TestDashboard_MonthNavigation(t *testing.T) {
	f := newDashboardFixture(t)

	tests := []struct {
		param             string
		month, prev, next string
		from, to, label   string
	}{
		{"2024-03", "2024-03", "2024-02", "2024-04", "2024-03-01", "2024-03-31", "março de 2024"},
		{"2024-01", "2024-01", "2023-12", "2024-02", "2024-01-01", "2024-01-31", "janeiro de 2024"},
		{"2024-12", "2024-12", "2024-11", "2025-01", "2024-12-01", "2024-12-31", "dezembro de 2024"},
		{"2024-02", "2024-02", "2024-01", "2024-03", "2024-02-01", "2024-02-29", "fevereiro de 2024"},
		{"2024-13", "2024-03", "2024-02", "2024-04", "2024-03-01", "2024-03-31", "março de 2024"},
		{"", "2024-03", "2024-02", "2024-04", "2024-03-01", "2024-03-31", "março de 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			d, err := f.dash.Build(context.Background(), "u1", tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.month, d.Month)
			assert.Equal(t, tt.prev, d.PrevMonth)
			assert.Equal(t, tt.next, d.NextMonth)
			assert.Equal(t, tt.from, d.From.String())
			assert.Equal(t, tt.to, d.To.String())
			assert.Equal(t, tt.label, d.PeriodLabel)
		})
	}
}

func TestDashboard_Aggregates(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)

	home, err := f.finance.CreateCategory(ctx, "u1", core.CategoryInput{Name: "Home", Type: "expense"})
	require.NoError(t, err)
	food, err := f.finance.CreateCategory(ctx, "u1", core.CategoryInput{Name: "Food", Type: "expense"})
	require.NoError(t, err)

	f.addTx(t, "u1", "income", "3000", "2024-03-01", "", "Salary")
	f.addTx(t, "u1", "expense", "750", "2024-03-05", home.ID, "Rent")
	f.addTx(t, "u1", "expense", "250", "2024-03-06", food.ID, "")
	f.addTx(t, "u1", "expense", "99", "2024-02-28", food.ID, "last month")
	f.addTx(t, "u2", "expense", "500", "2024-03-05", "", "someone else")

	_, err = f.finance.CreateSubscription(ctx, "u1", core.SubscriptionInput{Name: "Music", Amount: "10", BillingCycle: "monthly", NextDueAt: "2024-03-20"})
	require.NoError(t, err)
	_, err = f.finance.CreateSubscription(ctx, "u1", core.SubscriptionInput{Name: "Cloud", Amount: "120", BillingCycle: "yearly", NextDueAt: "2024-09-01"})
	require.NoError(t, err)

	d, err := f.dash.Build(ctx, "u1", "2024-03")
	require.NoError(t, err)

	assert.Equal(t, "3000.00", d.Summary.Income.String())
	assert.Equal(t, "1000.00", d.Summary.Expenses.String())
	assert.Equal(t, "2000.00", d.Summary.Balance.String())

	require.Len(t, d.TopCategories, 2)
	assert.Equal(t, "Home", d.TopCategories[0].Name)
	assert.Equal(t, 75, d.TopCategories[0].Percent)
	assert.Equal(t, "Food", d.TopCategories[1].Name)
	assert.Equal(t, 25, d.TopCategories[1].Percent)

	require.Len(t, d.Recent, 3)
	assert.Equal(t, "2024-03-06", d.Recent[0].OccurredAt.String())
	assert.Equal(t, core.NoDescription, d.Recent[0].Description)
	require.NotNil(t, d.Recent[0].CategoryName)
	assert.Equal(t, "Food", *d.Recent[0].CategoryName)

	assert.Len(t, d.Subscriptions, 2)
	assert.Equal(t, "20.00", d.SubscriptionsMonthlyCost.String())
	assert.Len(t, d.Categories, 2, "no defaults once the user has categories")
}

func TestDashboard_CacheAndInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture(t)

	d, err := f.dash.Build(ctx, "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.Summary.Income.Cents)
	assert.Equal(t, 1, f.pages.Size())

	f.addTx(t, "u1", "income", "10", "2024-03-02", "", "")
	assert.Equal(t, 0, f.pages.Size(), "mutation drops the user's pages")

	d, err = f.dash.Build(ctx, "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), d.Summary.Income.Cents)

	_, err = f.dash.Build(ctx, "u2", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2, f.pages.Size())

	locale := "en"
	_, err = f.prefs.Update(ctx, "u1", core.PreferencesInput{Locale: &locale})
	require.NoError(t, err)
	assert.Equal(t, 1, f.pages.Size(), "only u1 is invalidated")

	d, err = f.dash.Build(ctx, "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "March 2024", d.PeriodLabel)
	assert.Equal(t, core.LocaleEN, d.Preferences.Locale)
}

func TestDashboard_DisplayName(t *testing.T) {
	f := newDashboardFixture(t)
	f.ids.PutProfile(identity.Profile{ID: "u1", Username: "ana", Emails: []string{"ana@example.com"}})

	d, err := f.dash.Build(context.Background(), "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "ana", d.DisplayName)
}

type failingMetadata struct{}

func (failingMetadata) PublicMetadata(context.Context, string) (map[string]any, error) {
	return nil, errors.New("provider unavailable")
}

func (failingMetadata) MergePublicMetadata(context.Context, string, map[string]any) error {
	return errors.New("provider unavailable")
}

func TestDashboard_PreferenceFailurePropagates(t *testing.T) {
	store := newTestStore(t)
	finance := NewFinanceService(store, nil)
	ids := identity.NewMemory()
	dash := NewDashboardService(store, finance, NewPreferenceService(failingMetadata{}), ids, nil)

	_, err := dash.Build(context.Background(), "u1", "2024-03")
	assert.ErrorContains(t, err, "provider unavailable")
}

// gatedStore holds the first MonthSummary call until release is closed.
type gatedStore struct {
	storage.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) MonthSummary(ctx context.Context, userID string, from, to core.Date) (core.MonthSummary, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.MonthSummary(ctx, userID, from, to)
}

func TestDashboard_MutationDuringBuildIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{Store: newTestStore(t), entered: make(chan struct{}), release: make(chan struct{})}
	ids := identity.NewMemory()
	finance := NewFinanceService(store, nil)
	prefs := NewPreferenceService(ids)
	pages := cache.NewLRUCache[Dashboard](16, time.Minute)
	dash := NewDashboardService(store, finance, prefs, ids, pages)
	finance.OnChange(dash.Invalidate)

	type result struct {
		d   Dashboard
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := dash.Build(ctx, "u1", "2024-03")
		done <- result{d, err}
	}()

	<-store.entered
	_, err := finance.CreateTransaction(ctx, "u1", core.TransactionInput{Type: "income", Amount: "100", OccurredAt: "2024-03-10"})
	require.NoError(t, err)
	close(store.release)

	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, 0, pages.Size(), "page read before the mutation must not be cached")

	d, err := dash.Build(ctx, "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "100.00", d.Summary.Income.String())
	assert.Equal(t, 1, pages.Size())
}

func TestDashboard_UnknownProviderUserGetsDefaults(t *testing.T) {
	store := newTestStore(t)
	finance := NewFinanceService(store, nil)
	dash := NewDashboardService(store, finance, NewPreferenceService(unknownUserMetadata{}), identity.NewMemory(), nil)

	d, err := dash.Build(context.Background(), "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultPreferences(), d.Preferences)
	assert.Equal(t, "março de 2024", d.PeriodLabel)
}

func TestPeriodLabel(t *testing.T) {
	m := core.Month{Year: 2024, Month: time.May}
	assert.Equal(t, "maio de 2024", PeriodLabel(m, core.LocalePT))
	assert.Equal(t, "May 2024", PeriodLabel(m, core.LocaleEN))
}
