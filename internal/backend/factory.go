package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ezfin/internal/identity"
	"ezfin/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore opens the configured store and runs its migrations.
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(config)
	case PostgresBackend:
		return f.createPostgresStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(config Config) (*StoreResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &StoreResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresStore(ctx context.Context, config Config) (*StoreResult, error) {
	repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL, storage.PostgresOptions{
		MaxConns:        int32(config.MaxConns),
		MaxConnIdleTime: config.MaxConnIdleTime,
		SkipMigrations:  config.SkipMigrations,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
	}

	f.logger.Info("Initialized PostgreSQL backend",
		"max_conns", config.MaxConns,
		"max_conn_idle_time", config.MaxConnIdleTime)

	return &StoreResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

// CreateIdentity returns the configured identity provider. The memory
// provider forgets everything on restart and is meant for development.
func (f *DefaultFactory) CreateIdentity(ctx context.Context, config Config) (identity.Provider, error) {
	switch config.Identity {
	case "", MemoryIdentity:
		f.logger.Warn("Using in-memory identity provider; preferences are not persisted")
		return identity.NewMemory(), nil
	case ClerkIdentity:
		if config.ClerkSecretKey == "" {
			return nil, fmt.Errorf("Clerk secret key is required for clerk identity backend")
		}
		f.logger.Info("Initialized Clerk identity provider", "api_url", config.ClerkAPIURL)
		return identity.NewClerk(ctx, config.ClerkAPIURL, config.ClerkSecretKey), nil
	default:
		return nil, fmt.Errorf("unsupported identity backend: %s", config.Identity)
	}
}
