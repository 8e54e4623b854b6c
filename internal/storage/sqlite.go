package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ezfin/internal/core"

	_ "modernc.org/sqlite"
)

// createdAtLayout is fixed-width so lexical order matches time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository stores amounts as integer cents and dates as
// YYYY-MM-DD text.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

// sqliteDSN enables foreign keys on every pooled connection, which the
// ON DELETE SET NULL policy depends on.
func sqliteDSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath)

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() (time.Time, string) {
	t := r.now().UTC()
	return t, t.Format(createdAtLayout)
}

// Categories

func (r *SQLiteRepository) HasCategories(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM categories WHERE user_id = ? LIMIT 1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check categories: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) InsertCategories(ctx context.Context, userID string, cats []core.NewCategory) error {
	if len(cats) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, 0, len(cats))
	args := make([]any, 0, len(cats)*7)
	_, created := r.stamp()
	for _, c := range cats {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, uuid.NewString(), userID, c.Name, string(c.Type), c.Color, c.Icon, created)
	}
	q := `INSERT INTO categories (id, user_id, name, type, color, icon, created_at) VALUES ` +
		strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID string, c core.NewCategory) (core.Category, error) {
	createdAt, created := r.stamp()
	cat := core.Category{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      c.Name,
		Type:      c.Type,
		Color:     c.Color,
		Icon:      c.Icon,
		CreatedAt: createdAt,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, type, color, icon, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cat.ID, userID, cat.Name, string(cat.Type), cat.Color, cat.Icon, created)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return cat, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, color, icon, created_at FROM categories WHERE user_id = ? AND id = ?`,
		userID, id)
	c, err := scanSQLiteCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, color, icon, created_at FROM categories WHERE user_id = ? ORDER BY name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanSQLiteCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error) {
	createdAt, created := r.stamp()
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		OccurredAt:  t.OccurredAt,
		CategoryID:  t.CategoryID,
		CreatedAt:   createdAt,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, type, amount_cents, description, occurred_at, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, userID, string(tx.Type), tx.Amount.Cents, tx.Description, tx.OccurredAt.String(), tx.CategoryID, created)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"user_id", userID,
		"amount_cents", tx.Amount.Cents,
		"occurred_at", tx.OccurredAt.String())

	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var (
		t                 core.Transaction
		typ, occ, created string
		desc, catID       sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, amount_cents, description, occurred_at, category_id, created_at
		 FROM transactions WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &desc, &occ, &catID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	t.Description = nullString(desc)
	t.CategoryID = nullString(catID)
	if t.OccurredAt, err = core.ParseDate(occ); err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_at %q: %w", occ, err)
	}
	t.CreatedAt = parseCreatedAt(created)
	return t, nil
}

// Subscriptions

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, userID string, s core.NewSubscription) (core.Subscription, error) {
	createdAt, created := r.stamp()
	sub := core.Subscription{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         s.Name,
		Amount:       s.Amount,
		BillingCycle: s.BillingCycle,
		NextDueAt:    s.NextDueAt,
		IsActive:     true,
		CreatedAt:    createdAt,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, user_id, name, amount_cents, billing_cycle, next_due_at, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
		sub.ID, userID, sub.Name, sub.Amount.Cents, string(sub.BillingCycle), sub.NextDueAt.String(), created)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return sub, nil
}

const sqliteSubscriptionColumns = `id, user_id, name, amount_cents, billing_cycle, next_due_at, is_active, created_at`

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+sqliteSubscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY next_due_at ASC`,
		userID)
}

func (r *SQLiteRepository) ActiveSubscriptionsDue(ctx context.Context, from, to core.Date) ([]core.Subscription, error) {
	return r.querySubscriptions(ctx,
		`SELECT `+sqliteSubscriptionColumns+` FROM subscriptions
		 WHERE is_active = 1 AND next_due_at >= ? AND next_due_at <= ?
		 ORDER BY next_due_at ASC, user_id ASC`,
		from.String(), to.String())
}

func (r *SQLiteRepository) querySubscriptions(ctx context.Context, q string, args ...any) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	out := []core.Subscription{}
	for rows.Next() {
		var (
			s                   core.Subscription
			cycle, due, created string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Amount.Cents, &cycle, &due, &s.IsActive, &created); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.BillingCycle = core.BillingCycle(cycle)
		if s.NextDueAt, err = core.ParseDate(due); err != nil {
			return nil, fmt.Errorf("parse next_due_at %q: %w", due, err)
		}
		s.CreatedAt = parseCreatedAt(created)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Goals

func (r *SQLiteRepository) CreateGoal(ctx context.Context, userID string, g core.NewGoal) (core.Goal, error) {
	createdAt, created := r.stamp()
	goal := core.Goal{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         g.Name,
		TargetAmount: g.TargetAmount,
		DueAt:        g.DueAt,
		CreatedAt:    createdAt,
	}
	var due *string
	if g.DueAt != nil {
		s := g.DueAt.String()
		due = &s
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, name, target_amount_cents, current_amount_cents, due_at, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		goal.ID, userID, goal.Name, goal.TargetAmount.Cents, due, created)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return goal, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, target_amount_cents, current_amount_cents, due_at, created_at
		 FROM goals WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := []core.Goal{}
	for rows.Next() {
		var (
			g       core.Goal
			due     sql.NullString
			created string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &due, &created); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if due.Valid {
			d, err := core.ParseDate(due.String)
			if err != nil {
				return nil, fmt.Errorf("parse due_at %q: %w", due.String, err)
			}
			g.DueAt = &d
		}
		g.CreatedAt = parseCreatedAt(created)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Aggregates

func (r *SQLiteRepository) MonthSummary(ctx context.Context, userID string, from, to core.Date) (core.MonthSummary, error) {
	var income, expenses int64
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
		 FROM transactions
		 WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?`,
		userID, from.String(), to.String()).Scan(&income, &expenses)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	return core.NewMonthSummary(core.Money{Cents: income}, core.Money{Cents: expenses}), nil
}

func (r *SQLiteRepository) TopCategories(ctx context.Context, userID string, from, to core.Date, limit int) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.category_id, COALESCE(c.name, ?) AS name, SUM(t.amount_cents) AS total
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.type = 'expense' AND t.occurred_at >= ? AND t.occurred_at <= ?
		 GROUP BY t.category_id, c.name
		 ORDER BY total DESC, t.category_id IS NULL, t.category_id
		 LIMIT ?`,
		core.UncategorizedName, userID, from.String(), to.String(), clampLimit(limit, core.DefaultTopCategoriesLimit))
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryTotal{}
	for rows.Next() {
		var (
			ct    core.CategoryTotal
			catID sql.NullString
		)
		if err := rows.Scan(&catID, &ct.Name, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.CategoryID = nullString(catID)
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID string, f core.RecentFilter) ([]core.RecentTransaction, error) {
	var b strings.Builder
	b.WriteString(`SELECT t.id, t.type, t.amount_cents, COALESCE(t.description, ''), t.occurred_at, c.name, t.created_at
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ?`)
	args := []any{userID}
	if f.From != nil {
		b.WriteString(` AND t.occurred_at >= ?`)
		args = append(args, f.From.String())
	}
	if f.To != nil {
		b.WriteString(` AND t.occurred_at <= ?`)
		args = append(args, f.To.String())
	}
	b.WriteString(` ORDER BY t.occurred_at DESC, t.created_at DESC LIMIT ?`)
	args = append(args, clampLimit(f.Limit, core.DefaultRecentLimit))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	out := []core.RecentTransaction{}
	for rows.Next() {
		var (
			rt           core.RecentTransaction
			typ, occ, ca string
			catName      sql.NullString
		)
		if err := rows.Scan(&rt.ID, &typ, &rt.Amount.Cents, &rt.Description, &occ, &catName, &ca); err != nil {
			return nil, fmt.Errorf("scan recent transaction: %w", err)
		}
		rt.Type = core.TransactionType(typ)
		rt.CategoryName = nullString(catName)
		if rt.OccurredAt, err = core.ParseDate(occ); err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", occ, err)
		}
		rt.CreatedAt = parseCreatedAt(ca)
		out = append(out, rt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCategory(row rowScanner) (core.Category, error) {
	var (
		c            core.Category
		typ, created string
		color, icon  sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &typ, &color, &icon, &created); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	c.Color = nullString(color)
	c.Icon = nullString(icon)
	c.CreatedAt = parseCreatedAt(created)
	return c, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func parseCreatedAt(s string) time.Time {
	t, err := time.Parse(createdAtLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
