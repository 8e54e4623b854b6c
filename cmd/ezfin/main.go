package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ezfin/internal/adapters"
	"ezfin/internal/cache"
	"ezfin/internal/cli"
	"ezfin/internal/config"
	apphttp "ezfin/internal/http"
	"ezfin/internal/log"
	"ezfin/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	logger.Info("Starting ezfin server")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	ctx := context.Background()

	storeResult := cli.InitStore(ctx, logger, cfg)
	provider := cli.InitIdentity(ctx, logger, cfg)

	// Publishing is optional: the API keeps working without a broker.
	events := adapters.NewAMQPEvents(cli.InitAMQP(logger, cfg, false, ""))

	finance := services.NewFinanceService(storeResult.Store, events)
	prefs := services.NewPreferenceService(provider)

	pages := cache.NewLRUCache[services.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
	caches := cache.NewManager()
	caches.Register("dashboard", pages)
	caches.StartCleanup(time.Minute)

	dashboard := services.NewDashboardService(storeResult.Store, finance, prefs, provider, pages)
	finance.OnChange(dashboard.Invalidate)
	prefs.OnChange(dashboard.Invalidate)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		AuthHeader:         cfg.AuthHeader,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
		Caches:             caches,
	}, apphttp.Services{
		Finance:     finance,
		Dashboard:   dashboard,
		Preferences: prefs,
		Store:       storeResult.Store,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cli.CloseAll(logger, map[string]func() error{
			"events": events.Close,
			"store":  storeResult.Cleanup,
		})
	})

	logger.Info("Listening",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"identity", cfg.IdentityBackend,
		"events", events.Enabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cli.CloseAll(logger, map[string]func() error{"store": storeResult.Cleanup})
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
