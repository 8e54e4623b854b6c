package main

import (
	"context"

	"ezfin/internal/backend"
	"ezfin/internal/log"
)

// openStore opens the configured store through the same factory the servers
// use. Callers must run the returned cleanup.
func (a *app) openStore(ctx context.Context) (*backend.StoreResult, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateStore(ctx, bcfg)
}
