// Command ezfin-worker appends every newly created transaction to the Google
// Sheets ledger.
package main

import (
	"context"
	"os"

	"ezfin/internal/amqp"
	"ezfin/internal/cli"
	"ezfin/internal/config"
	"ezfin/internal/log"
	"ezfin/internal/services"
	gsheet "ezfin/internal/sheets/google"
	"ezfin/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentExport)
	logger.Info("Starting ezfin-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateExport)
	ctx := context.Background()

	storeResult := cli.InitStore(ctx, logger, cfg)

	ledger, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.Credentials{
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		storeResult.Cleanup()
		os.Exit(1)
	}
	logger.Info("Google Sheets ledger ready",
		log.FieldSpreadsheet, cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	client := cli.InitAMQP(logger, cfg, true, cfg.AMQPQueue, amqp.RoutingTransactionCreated)

	exporter := services.NewLedgerExporter(storeResult.Store, ledger)
	export := worker.NewExportWorker(client, exporter.HandleTransactionCreated)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := export.Stop(ctx); err != nil {
			logger.Error("Export worker did not stop cleanly", log.FieldError, err)
		}
		cli.CloseAll(logger, map[string]func() error{
			"amqp":  client.Close,
			"store": storeResult.Cleanup,
		})
	})

	if err := export.Start(shutdownCtx); err != nil {
		logger.Error("Failed to start export worker", log.FieldError, err)
		os.Exit(1)
	}

	select {
	case <-export.Done():
		if err := export.Err(); err != nil {
			logger.Error("Export worker stopped unexpectedly", log.FieldError, err)
			cli.CloseAll(logger, map[string]func() error{
				"amqp":  client.Close,
				"store": storeResult.Cleanup,
			})
			os.Exit(1)
		}
		cli.WaitForShutdown(shutdownCtx, done)
	case <-done:
	}
	logger.Info("ezfin-worker stopped")
}
