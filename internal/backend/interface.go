package backend

import (
	"context"
	"time"

	"ezfin/internal/identity"
	"ezfin/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store and the function that releases it.
type StoreResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory creates the process-wide store and identity provider from
// configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreateIdentity(ctx context.Context, config Config) (identity.Provider, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	DatabaseURL     string
	MaxConns        int
	MaxConnIdleTime time.Duration
	SkipMigrations  bool

	// Identity provider
	Identity       IdentityType
	ClerkAPIURL    string
	ClerkSecretKey string
}

// BackendType represents the type of data backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// IdentityType selects the identity provider implementation.
type IdentityType string

const (
	MemoryIdentity IdentityType = "memory"
	ClerkIdentity  IdentityType = "clerk"
)

func (it IdentityType) IsValid() bool {
	return it == MemoryIdentity || it == ClerkIdentity
}
