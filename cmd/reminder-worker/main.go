// Command reminder-worker publishes subscription.reminder events for active
// subscriptions that fall due soon. It never changes the stored due dates.
package main

import (
	"context"
	"os"
	"time"

	"ezfin/internal/adapters"
	"ezfin/internal/cli"
	"ezfin/internal/config"
	"ezfin/internal/log"
	"ezfin/internal/services"
	"ezfin/internal/worker"
)

// scanTimeout bounds a single reminder scan.
const scanTimeout = 2 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReminder)
	logger.Info("Starting reminder-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateReminder)
	ctx := context.Background()

	storeResult := cli.InitStore(ctx, logger, cfg)
	events := adapters.NewAMQPEvents(cli.InitAMQP(logger, cfg, true, ""))

	processor := services.NewReminderProcessor(storeResult.Store, events, cfg.ReminderWindowDays)
	scheduler := worker.NewReminderScheduler(processor, cfg.ReminderSchedule, scanTimeout)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Scheduler did not stop cleanly", log.FieldError, err)
		}
		cli.CloseAll(logger, map[string]func() error{
			"events": events.Close,
			"store":  storeResult.Cleanup,
		})
	})

	// Catch up once on start so a restart does not skip a day.
	scheduler.RunOnce(shutdownCtx)

	if err := scheduler.Start(shutdownCtx); err != nil {
		logger.Error("Failed to start reminder scheduler", log.FieldError, err, "schedule", cfg.ReminderSchedule)
		os.Exit(1)
	}
	logger.Info("Reminder scheduler running",
		"schedule", cfg.ReminderSchedule,
		"window_days", cfg.ReminderWindowDays)

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("reminder-worker stopped")
}
