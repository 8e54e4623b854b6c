package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ezfin/internal/core"
)

// PostgresRepository keeps money in NUMERIC(12,2) columns. Amounts and dates
// cross the driver boundary as text so no float conversion ever happens.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresRepository)(nil)

type PostgresOptions struct {
	MaxConns        int32
	MaxConnIdleTime time.Duration
	SkipMigrations  bool
}

func NewPostgresRepository(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresRepository, error) {
	if !opts.SkipMigrations {
		if err := RunPostgresMigrations(dsn); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 1
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MaxConnIdleTime = 20 * time.Second
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("PostgreSQL repository ready",
		"max_conns", cfg.MaxConns,
		"max_conn_idle_time", cfg.MaxConnIdleTime)

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Categories

const pgCategoryColumns = `id::text, user_id, name, type::text, color, icon, created_at`

func (r *PostgresRepository) HasCategories(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM categories WHERE user_id = $1 LIMIT 1`, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check categories: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) InsertCategories(ctx context.Context, userID string, cats []core.NewCategory) error {
	if len(cats) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range cats {
		batch.Queue(
			`INSERT INTO categories (user_id, name, type, color, icon) VALUES ($1, $2, $3::transaction_type, $4, $5)`,
			userID, c.Name, string(c.Type), c.Color, c.Icon)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, userID string, c core.NewCategory) (core.Category, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO categories (user_id, name, type, color, icon)
		 VALUES ($1, $2, $3::transaction_type, $4, $5)
		 RETURNING `+pgCategoryColumns,
		userID, c.Name, string(c.Type), c.Color, c.Icon)
	cat, err := scanPgCategory(row)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return cat, nil
}

// Ids are compared as text so a malformed id reads as "not found" rather
// than a uuid syntax error.
func (r *PostgresRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+pgCategoryColumns+` FROM categories WHERE user_id = $1 AND id::text = $2`, userID, id)
	c, err := scanPgCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE user_id = $1 AND id::text = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgCategoryColumns+` FROM categories WHERE user_id = $1 ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanPgCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Transactions

const pgTransactionColumns = `id::text, user_id, type::text, amount::text, description, occurred_at::text, category_id::text, created_at`

func (r *PostgresRepository) CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (user_id, type, amount, description, occurred_at, category_id)
		 VALUES ($1, $2::transaction_type, $3::numeric, $4, $5::date, $6::uuid)
		 RETURNING `+pgTransactionColumns,
		userID, string(t.Type), t.Amount.String(), t.Description, t.OccurredAt.String(), t.CategoryID)
	tx, err := scanPgTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+pgTransactionColumns+` FROM transactions WHERE user_id = $1 AND id::text = $2`, userID, id)
	t, err := scanPgTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// Subscriptions

const pgSubscriptionColumns = `id::text, user_id, name, amount::text, billing_cycle::text, next_due_at::text, is_active, created_at`

func (r *PostgresRepository) CreateSubscription(ctx context.Context, userID string, s core.NewSubscription) (core.Subscription, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, name, amount, billing_cycle, next_due_at)
		 VALUES ($1, $2, $3::numeric, $4::billing_cycle, $5::date)
		 RETURNING `+pgSubscriptionColumns,
		userID, s.Name, s.Amount.String(), string(s.BillingCycle), s.NextDueAt.String())
	sub, err := scanPgSubscription(row)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return sub, nil
}

func (r *PostgresRepository) ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+pgSubscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY next_due_at ASC`, userID)
}

func (r *PostgresRepository) ActiveSubscriptionsDue(ctx context.Context, from, to core.Date) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+pgSubscriptionColumns+` FROM subscriptions
		 WHERE is_active AND next_due_at BETWEEN $1::date AND $2::date
		 ORDER BY next_due_at ASC, user_id ASC`,
		from.String(), to.String())
}

func (r *PostgresRepository) querySubscriptions(ctx context.Context, q string, args ...any) ([]core.Subscription, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	out := []core.Subscription{}
	for rows.Next() {
		s, err := scanPgSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Goals

const pgGoalColumns = `id::text, user_id, name, target_amount::text, current_amount::text, due_at::text, created_at`

func (r *PostgresRepository) CreateGoal(ctx context.Context, userID string, g core.NewGoal) (core.Goal, error) {
	var due *string
	if g.DueAt != nil {
		s := g.DueAt.String()
		due = &s
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO goals (user_id, name, target_amount, due_at)
		 VALUES ($1, $2, $3::numeric, $4::date)
		 RETURNING `+pgGoalColumns,
		userID, g.Name, g.TargetAmount.String(), due)
	goal, err := scanPgGoal(row)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return goal, nil
}

func (r *PostgresRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgGoalColumns+` FROM goals WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := []core.Goal{}
	for rows.Next() {
		g, err := scanPgGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Aggregates

func (r *PostgresRepository) MonthSummary(ctx context.Context, userID string, from, to core.Date) (core.MonthSummary, error) {
	var income, expenses string
	err := r.pool.QueryRow(ctx,
		`SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0)::text,
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)::text
		 FROM transactions
		 WHERE user_id = $1 AND occurred_at BETWEEN $2::date AND $3::date`,
		userID, from.String(), to.String()).Scan(&income, &expenses)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	in, err := core.MoneyFromString(income)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("parse income %q: %w", income, err)
	}
	out, err := core.MoneyFromString(expenses)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("parse expenses %q: %w", expenses, err)
	}
	return core.NewMonthSummary(in, out), nil
}

func (r *PostgresRepository) TopCategories(ctx context.Context, userID string, from, to core.Date, limit int) ([]core.CategoryTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.category_id::text, COALESCE(c.name, $1) AS name, SUM(t.amount)::text
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = $2 AND t.type = 'expense' AND t.occurred_at BETWEEN $3::date AND $4::date
		 GROUP BY t.category_id, c.name
		 ORDER BY SUM(t.amount) DESC, t.category_id ASC NULLS LAST
		 LIMIT $5`,
		core.UncategorizedName, userID, from.String(), to.String(), clampLimit(limit, core.DefaultTopCategoriesLimit))
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryTotal{}
	for rows.Next() {
		var (
			ct    core.CategoryTotal
			total string
		)
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if ct.Total, err = core.MoneyFromString(total); err != nil {
			return nil, fmt.Errorf("parse total %q: %w", total, err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) RecentTransactions(ctx context.Context, userID string, f core.RecentFilter) ([]core.RecentTransaction, error) {
	var b strings.Builder
	b.WriteString(`SELECT t.id::text, t.type::text, t.amount::text, COALESCE(t.description, ''), t.occurred_at::text, c.name, t.created_at
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = $1`)
	args := []any{userID}
	if f.From != nil {
		args = append(args, f.From.String())
		fmt.Fprintf(&b, ` AND t.occurred_at >= $%d::date`, len(args))
	}
	if f.To != nil {
		args = append(args, f.To.String())
		fmt.Fprintf(&b, ` AND t.occurred_at <= $%d::date`, len(args))
	}
	args = append(args, clampLimit(f.Limit, core.DefaultRecentLimit))
	fmt.Fprintf(&b, ` ORDER BY t.occurred_at DESC, t.created_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	out := []core.RecentTransaction{}
	for rows.Next() {
		var (
			rt                core.RecentTransaction
			typ, amount, occ string
		)
		if err := rows.Scan(&rt.ID, &typ, &amount, &rt.Description, &occ, &rt.CategoryName, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent transaction: %w", err)
		}
		rt.Type = core.TransactionType(typ)
		if rt.Amount, err = core.MoneyFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if rt.OccurredAt, err = core.ParseDate(occ); err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", occ, err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func scanPgCategory(row pgx.Row) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func scanPgTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t                core.Transaction
		typ, amount, occ string
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &amount, &t.Description, &occ, &t.CategoryID, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	var err error
	t.Type = core.TransactionType(typ)
	if t.Amount, err = core.MoneyFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.OccurredAt, err = core.ParseDate(occ); err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_at %q: %w", occ, err)
	}
	return t, nil
}

func scanPgSubscription(row pgx.Row) (core.Subscription, error) {
	var (
		s                  core.Subscription
		amount, cycle, due string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &amount, &cycle, &due, &s.IsActive, &s.CreatedAt); err != nil {
		return core.Subscription{}, err
	}
	var err error
	s.BillingCycle = core.BillingCycle(cycle)
	if s.Amount, err = core.MoneyFromString(amount); err != nil {
		return core.Subscription{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if s.NextDueAt, err = core.ParseDate(due); err != nil {
		return core.Subscription{}, fmt.Errorf("parse next_due_at %q: %w", due, err)
	}
	return s, nil
}

func scanPgGoal(row pgx.Row) (core.Goal, error) {
	var (
		g               core.Goal
		target, current string
		due             *string
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &due, &g.CreatedAt); err != nil {
		return core.Goal{}, err
	}
	var err error
	if g.TargetAmount, err = core.MoneyFromString(target); err != nil {
		return core.Goal{}, fmt.Errorf("parse target_amount %q: %w", target, err)
	}
	if g.CurrentAmount, err = core.MoneyFromString(current); err != nil {
		return core.Goal{}, fmt.Errorf("parse current_amount %q: %w", current, err)
	}
	if due != nil {
		d, err := core.ParseDate(*due)
		if err != nil {
			return core.Goal{}, fmt.Errorf("parse due_at %q: %w", *due, err)
		}
		g.DueAt = &d
	}
	return g, nil
}
