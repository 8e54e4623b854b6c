package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezfin/internal/config"
	"ezfin/internal/identity"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.ErrorContains(t, err, "invalid backend type")

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:       config.BackendPostgres,
		DatabaseURL:       "postgres://localhost/ezfin",
		DBMaxConns:        4,
		DBMaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, PostgresBackend, cfg.Type)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.Equal(t, MemoryIdentity, cfg.Identity)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"clerk without secret", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", Identity: ClerkIdentity}, true},
		{"unknown identity", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", Identity: "ldap"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateSQLiteStore(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateStore(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "ezfin.db"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Cleanup)
	defer res.Cleanup()

	assert.NoError(t, res.Store.Ping(context.Background()))
}

func TestFactory_CreateIdentity(t *testing.T) {
	f := NewFactory(nil)

	p, err := f.CreateIdentity(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &identity.Memory{}, p)

	p, err = f.CreateIdentity(context.Background(), Config{Identity: ClerkIdentity, ClerkAPIURL: "https://api.clerk.test", ClerkSecretKey: "sk_test"})
	require.NoError(t, err)
	assert.IsType(t, &identity.Clerk{}, p)

	_, err = f.CreateIdentity(context.Background(), Config{Identity: ClerkIdentity})
	assert.Error(t, err)
}
