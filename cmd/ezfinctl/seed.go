package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ezfin/internal/core"
	"ezfin/internal/services"
)

// incomeEvery makes roughly one generated transaction in eight an income.
const incomeEvery = 8

func seedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demo transactions for a user",
		Long: `Fill a user's ledger with fake transactions spread over the last few
months. Default categories are created first when the user has none.
The same --seed always produces the same data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			count, _ := cmd.Flags().GetInt("count")
			days, _ := cmd.Flags().GetInt("days")
			seed, _ := cmd.Flags().GetInt64("seed")

			userID = strings.TrimSpace(userID)
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			res, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = res.Cleanup() }()

			finance := services.NewFinanceService(res.Store, nil)
			if err := finance.EnsureDefaultCategories(cmd.Context(), userID); err != nil {
				return fmt.Errorf("bootstrap categories: %w", err)
			}
			cats, err := finance.ListCategories(cmd.Context(), userID)
			if err != nil {
				return err
			}

			gen := newDemoGenerator(seed, cats, time.Now(), days)
			created, err := seedTransactions(cmd.Context(), finance, userID, gen, count, cmd.ErrOrStderr())
			a.logger.Info("Seeded demo transactions", "user_id", userID, "created", created)
			return err
		},
	}
	cmd.Flags().String("user", "", "user id to seed")
	cmd.Flags().Int("count", 50, "number of transactions")
	cmd.Flags().Int("days", 90, "spread transactions over this many past days")
	cmd.Flags().Int64("seed", 0, "random seed (0 picks a random one)")
	return cmd
}

// demoGenerator produces plausible transaction inputs from a user's
// categories.
type demoGenerator struct {
	faker    *gofakeit.Faker
	expenses []core.Category
	incomes  []core.Category
	from, to time.Time
	n        int
}

func newDemoGenerator(seed int64, cats []core.Category, now time.Time, days int) *demoGenerator {
	g := &demoGenerator{
		faker: gofakeit.New(seed),
		from:  now.AddDate(0, 0, -days),
		to:    now,
	}
	for _, c := range cats {
		if c.Type == core.Income {
			g.incomes = append(g.incomes, c)
		} else {
			g.expenses = append(g.expenses, c)
		}
	}
	return g
}

func (g *demoGenerator) next() core.TransactionInput {
	g.n++
	in := core.TransactionInput{
		OccurredAt: g.faker.DateRange(g.from, g.to).Format(core.DateLayout),
	}
	if g.n%incomeEvery == 0 {
		in.Type = string(core.Income)
		in.Amount = fmt.Sprintf("%.2f", g.faker.Price(800, 4500))
		in.Description = "Pagamento " + g.faker.Company()
		in.CategoryID = g.pick(g.incomes)
		return in
	}
	in.Type = string(core.Expense)
	in.Amount = fmt.Sprintf("%.2f", g.faker.Price(2, 350))
	in.Description = g.faker.Company()
	// Leave some expenses uncategorized so the "Sem categoria" bucket shows up.
	if g.faker.Number(1, 10) > 1 {
		in.CategoryID = g.pick(g.expenses)
	}
	return in
}

func (g *demoGenerator) pick(cats []core.Category) string {
	if len(cats) == 0 {
		return ""
	}
	return cats[g.faker.Number(0, len(cats)-1)].ID
}

func seedTransactions(ctx context.Context, finance *services.FinanceService, userID string, gen *demoGenerator, count int, progress io.Writer) (int, error) {
	bar := progressbar.NewOptions(count,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Seeding transactions"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
	created := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if _, err := finance.CreateTransaction(ctx, userID, gen.next()); err != nil {
			return created, fmt.Errorf("create transaction %d: %w", i+1, err)
		}
		created++
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return created, nil
}
