package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ezfin/internal/config"
	"ezfin/internal/log"
	"ezfin/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Long: `Bring the configured database up to the latest schema version.

The servers migrate on start-up as well; this command lets a deploy run the
migrations once before rolling the processes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.storeConfig()
			if err != nil {
				return err
			}
			logger := a.logger.WithComponent(log.ComponentStorage)
			logger.Info("Running migrations", "backend", cfg.DataBackend)

			switch cfg.DataBackend {
			case config.BackendPostgres:
				err = storage.RunPostgresMigrations(cfg.DatabaseURL)
			default:
				// Opening the repository creates the file and its directory first.
				var repo *storage.SQLiteRepository
				repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
				if err == nil {
					err = repo.Close()
				}
			}
			if err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.DataBackend, err)
			}

			logger.Info("Migrations complete", "backend", cfg.DataBackend)
			return nil
		},
	}
}
