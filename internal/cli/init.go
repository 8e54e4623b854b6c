// Package cli holds the start-up helpers shared by the binaries under cmd/.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ezfin/internal/amqp"
	"ezfin/internal/backend"
	"ezfin/internal/config"
	"ezfin/internal/identity"
	"ezfin/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	var levelErr, formatErr error
	cfg.Level, levelErr = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.Format, formatErr = log.ParseFormat(os.Getenv("LOG_FORMAT"))

	logger := log.New(cfg)
	log.SetDefault(logger)
	for _, err := range []error{levelErr, formatErr} {
		if err != nil {
			logger.Warn("Ignoring invalid logging setting", log.FieldError, err)
		}
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and checks it with validate,
// exiting the process on failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the configured store or exits the process on failure.
func InitStore(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.StoreResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateStore(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// InitIdentity builds the configured identity provider or exits the process
// on failure.
func InitIdentity(ctx context.Context, logger *log.Logger, cfg *config.Config) identity.Provider {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	provider, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentIdentity)).CreateIdentity(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize identity provider", log.FieldError, err, "backend", cfg.IdentityBackend)
		os.Exit(1)
	}
	return provider
}

// InitAMQP dials the broker. An empty URL returns nil; a dial failure is
// fatal only when required is set.
func InitAMQP(logger *log.Logger, cfg *config.Config, required bool, queue string, bindings ...string) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue, bindings...)
	if err != nil {
		if required {
			logger.Error("Failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", queue)
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// CloseAll runs every closer and logs failures.
func CloseAll(logger *log.Logger, closers map[string]func() error) {
	for name, c := range closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			logger.Error("Failed to close resource", "resource", name, log.FieldError, err)
		}
	}
}
