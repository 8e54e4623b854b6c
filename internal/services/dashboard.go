package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ezfin/internal/cache"
	"ezfin/internal/core"
	"ezfin/internal/identity"
	"ezfin/internal/log"
	"ezfin/internal/storage"
)

// Dashboard is everything the month page shows.
type Dashboard struct {
	Month                    string                   `json:"month"`
	From                     core.Date                `json:"from"`
	To                       core.Date                `json:"to"`
	PrevMonth                string                   `json:"prevMonth"`
	NextMonth                string                   `json:"nextMonth"`
	PeriodLabel              string                   `json:"periodLabel"`
	DisplayName              string                   `json:"displayName"`
	Preferences              core.UserPreferences     `json:"preferences"`
	Summary                  core.MonthSummary        `json:"summary"`
	TopCategories            []core.CategoryTotal     `json:"topCategories"`
	Recent                   []core.RecentTransaction `json:"recentTransactions"`
	Categories               []core.Category          `json:"categories"`
	Subscriptions            []core.Subscription      `json:"subscriptions"`
	SubscriptionsMonthlyCost core.Money               `json:"subscriptionsMonthlyCost"`
	Goals                    []core.Goal              `json:"goals"`
}

// DashboardService composes the month page from the store and the identity
// provider. Pages are cached per user and month until a mutation of that
// user invalidates them.
type DashboardService struct {
	store    storage.Store
	finance  *FinanceService
	prefs    *PreferenceService
	profiles identity.ProfileReader
	cache    cache.Cache[Dashboard]
	now      func() time.Time

	// generations counts invalidations per user. A build only caches its
	// page when no invalidation happened while it was reading.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewDashboardService wires the composer. pages may be nil to disable
// caching.
func NewDashboardService(store storage.Store, finance *FinanceService, prefs *PreferenceService, profiles identity.ProfileReader, pages cache.Cache[Dashboard]) *DashboardService {
	return &DashboardService{
		store:    store,
		finance:  finance,
		prefs:    prefs,
		profiles: profiles,
		cache:    pages,
		now:      time.Now,

		generations: make(map[string]uint64),
	}
}

func cacheKey(userID string, m core.Month) string {
	return userID + "|" + m.Key()
}

// Invalidate drops every cached month of the user.
func (s *DashboardService) Invalidate(userID string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()
	s.cache.DeletePrefix(userID + "|")
}

func (s *DashboardService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// storeIfCurrent caches d unless the user was invalidated after gen was
// read. The check and the write happen under the same lock as the bump.
func (s *DashboardService) storeIfCurrent(userID, key string, gen uint64, d Dashboard) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return false
	}
	s.cache.Set(key, d)
	return true
}

// Build returns the page for month (YYYY-MM). A malformed month falls back
// to the current one. The user's default categories are created on the
// first visit.
func (s *DashboardService) Build(ctx context.Context, userID, month string) (Dashboard, error) {
	if userID == "" {
		return Dashboard{}, core.ErrUnauthorized
	}
	logger := log.FromContext(ctx).WithComponent(log.ComponentDashboard)

	m := core.MonthOrCurrent(month, s.now())
	key := cacheKey(userID, m)
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			logger.DebugContext(ctx, "Dashboard cache hit", log.FieldUserID, userID, log.FieldMonth, m.Key())
			return d, nil
		}
	}

	if err := s.finance.EnsureDefaultCategories(ctx, userID); err != nil {
		return Dashboard{}, err
	}
	gen := s.generation(userID)

	from, to := m.First(), m.Last()
	d := Dashboard{
		Month:     m.Key(),
		From:      from,
		To:        to,
		PrevMonth: m.Prev().Key(),
		NextMonth: m.Next().Key(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := s.store.MonthSummary(gctx, userID, from, to)
		if err != nil {
			return fmt.Errorf("month summary: %w", err)
		}
		d.Summary = sum
		return nil
	})
	g.Go(func() error {
		top, err := s.store.TopCategories(gctx, userID, from, to, core.DefaultTopCategoriesLimit)
		if err != nil {
			return fmt.Errorf("top categories: %w", err)
		}
		d.TopCategories = core.WithShares(top)
		return nil
	})
	g.Go(func() error {
		recent, err := s.store.RecentTransactions(gctx, userID, core.RecentFilter{
			From:  &from,
			To:    &to,
			Limit: core.DashboardRecentLimit,
		})
		if err != nil {
			return fmt.Errorf("recent transactions: %w", err)
		}
		for i := range recent {
			if strings.TrimSpace(recent[i].Description) == "" {
				recent[i].Description = core.NoDescription
			}
		}
		d.Recent = recent
		return nil
	})
	g.Go(func() error {
		cats, err := s.store.ListCategories(gctx, userID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		d.Categories = cats
		return nil
	})
	g.Go(func() error {
		subs, err := s.store.ListSubscriptions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list subscriptions: %w", err)
		}
		d.Subscriptions = subs
		d.SubscriptionsMonthlyCost = MonthlySubscriptionCost(subs)
		return nil
	})
	g.Go(func() error {
		goals, err := s.store.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		d.Goals = goals
		return nil
	})
	g.Go(func() error {
		prefs, err := s.prefs.Get(gctx, userID)
		if err != nil {
			return err
		}
		d.Preferences = prefs
		return nil
	})
	g.Go(func() error {
		// The page renders without a name when the profile is unavailable.
		p, err := s.profiles.Profile(gctx, userID)
		if err != nil {
			logger.WarnContext(ctx, "Failed to load profile", log.FieldUserID, userID, log.FieldError, err)
			return nil
		}
		d.DisplayName = p.DisplayName()
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d.PeriodLabel = PeriodLabel(m, d.Preferences.Locale)
	if s.cache != nil && !s.storeIfCurrent(userID, key, gen, d) {
		logger.DebugContext(ctx, "Dashboard changed during build, not cached", log.FieldUserID, userID, log.FieldMonth, m.Key())
	}
	return d, nil
}

var ptMonths = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// PeriodLabel names the month in the user's language, e.g. "março de 2024"
// or "March 2024".
func PeriodLabel(m core.Month, locale core.Locale) string {
	if locale == core.LocaleEN {
		return fmt.Sprintf("%s %d", m.Month.String(), m.Year)
	}
	return fmt.Sprintf("%s de %d", ptMonths[m.Month-1], m.Year)
}
