package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezfin/internal/core"
	"ezfin/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func openTestStore(t *testing.T, path string) *storage.SQLiteRepository {
	t.Helper()
	store, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBuildConfig_Overrides(t *testing.T) {
	t.Setenv("SQLITE_DB_PATH", "/from/env.db")
	t.Setenv("EZFIN_STORAGE_BACKEND", "postgres")
	t.Setenv("EZFIN_STORAGE_DATABASE_URL", "postgres://ezfin@localhost/ezfin")

	v := viper.New()
	bindEnv(v)
	cfg := buildConfig(v)

	assert.Equal(t, "postgres", cfg.DataBackend)
	assert.Equal(t, "postgres://ezfin@localhost/ezfin", cfg.DatabaseURL)
	assert.Equal(t, "/from/env.db", cfg.SQLiteDBPath, "unset keys keep the process environment value")
}

func TestBuildConfig_BlankValuesIgnored(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	v := viper.New()
	v.Set("storage.backend", "   ")
	assert.Equal(t, "sqlite", buildConfig(v).DataBackend)
}

func TestRequiresUser(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ezfin.db")
	for _, cmd := range []string{"bootstrap", "summary", "seed"} {
		t.Run(cmd, func(t *testing.T) {
			_, err := run(t, "--backend", "sqlite", "--sqlite-path", db, cmd)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--user is required")
		})
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "migrate")
	require.Error(t, err)
}

func TestMigrateAndBootstrap(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "ezfin.db")

	_, err := run(t, "--backend", "sqlite", "--sqlite-path", db, "migrate")
	require.NoError(t, err)

	out, err := run(t, "--backend", "sqlite", "--sqlite-path", db, "bootstrap", "--user", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1 has 12 categories\n", out)

	// A second run leaves the existing set alone.
	out, err = run(t, "--backend", "sqlite", "--sqlite-path", db, "bootstrap", "--user", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1 has 12 categories\n", out)
}

func TestSummary(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ezfin.db")
	store := openTestStore(t, db)
	ctx := context.Background()

	_, err := store.CreateTransaction(ctx, "user_1", core.NewTransaction{
		Type: core.Income, Amount: core.Money{Cents: 300000}, OccurredAt: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	_, err = store.CreateTransaction(ctx, "user_1", core.NewTransaction{
		Type: core.Expense, Amount: core.Money{Cents: 1250}, OccurredAt: core.NewDate(2024, 3, 10),
	})
	require.NoError(t, err)
	// Outside the month.
	_, err = store.CreateTransaction(ctx, "user_1", core.NewTransaction{
		Type: core.Expense, Amount: core.Money{Cents: 9900}, OccurredAt: core.NewDate(2024, 4, 1),
	})
	require.NoError(t, err)

	out, err := run(t, "--backend", "sqlite", "--sqlite-path", db, "summary", "--user", "user_1", "--month", "2024-03", "--json")
	require.NoError(t, err)

	var report monthReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "2024-03", report.Month)
	assert.Equal(t, int64(300000), report.Summary.Income.Cents)
	assert.Equal(t, int64(1250), report.Summary.Expenses.Cents)
	assert.Equal(t, int64(298750), report.Summary.Balance.Cents)
	require.Len(t, report.TopCategories, 1)
	assert.Equal(t, core.UncategorizedName, report.TopCategories[0].Name)
	assert.Equal(t, 100, report.TopCategories[0].Percent)

	table, err := run(t, "--backend", "sqlite", "--sqlite-path", db, "summary", "--user", "user_1", "--month", "2024-03")
	require.NoError(t, err)
	assert.Contains(t, table, "Balance")
	assert.Contains(t, table, "2987.50")
}

func TestSummary_InvalidMonth(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ezfin.db")
	_, err := run(t, "--backend", "sqlite", "--sqlite-path", db, "summary", "--user", "user_1", "--month", "2024-13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM")
}

func TestSeed(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ezfin.db")

	_, err := run(t, "--backend", "sqlite", "--sqlite-path", db, "seed", "--user", "user_1", "--count", "16", "--seed", "42")
	require.NoError(t, err)

	store := openTestStore(t, db)
	txs, err := store.RecentTransactions(context.Background(), "user_1", core.RecentFilter{Limit: core.MaxListLimit})
	require.NoError(t, err)
	assert.Len(t, txs, 16)

	incomes := 0
	for _, tx := range txs {
		if tx.Type == core.Income {
			incomes++
		}
		assert.Positive(t, tx.Amount.Cents)
	}
	assert.Equal(t, 2, incomes)
}

func TestDemoGenerator_Deterministic(t *testing.T) {
	cats := []core.Category{
		{ID: "c-food", Type: core.Expense},
		{ID: "c-salary", Type: core.Income},
	}
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	a := newDemoGenerator(7, cats, now, 30)
	b := newDemoGenerator(7, cats, now, 30)

	for i := 0; i < 20; i++ {
		in := a.next()
		assert.Equal(t, in, b.next())

		nt, err := in.Normalize()
		require.NoError(t, err, "generated input %d must validate: %+v", i, in)
		assert.False(t, nt.OccurredAt.Before(core.NewDate(2024, 5, 16).Time))
		assert.False(t, nt.OccurredAt.After(core.NewDate(2024, 6, 15).Time))
		if nt.CategoryID != nil {
			assert.True(t, strings.HasPrefix(*nt.CategoryID, "c-"))
		}
	}
}
