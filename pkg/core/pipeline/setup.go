package pipeline

import (
	"context"
	"path/filepath"

	"forensic_accounting/pkg/core/config"
	"forensic_accounting/pkg/core/ingest"
	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/core/metrics"
	"forensic_accounting/pkg/core/store"
)

// NewEDGARRunner builds a runner backed by SEC EDGAR with the configured facts cache.
// The Postgres cache is used when a database URL is configured and reachable; otherwise
// payloads are cached on disk. Call the returned func on shutdown.
func NewEDGARRunner(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder) (*Runner, func()) {
	cleanup := func() {}

	cache := store.NewFactsCache(nil, filepath.Join(cfg.Cache.Dir, "edgar", "companyfacts"), cfg.Cache.TTL())
	if cfg.Cache.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.Cache.DatabaseURL); err != nil {
			logger.Warn(ctx, "Postgres cache unavailable, using file cache", "error", err)
		} else {
			cache = store.NewFactsCache(store.GetPool(), "", cfg.Cache.TTL())
			cleanup = store.Close
			logger.Info(ctx, "Using Postgres facts cache")
		}
	}

	client := ingest.NewEDGARClient(ingest.ClientOptions{
		UserAgent:         cfg.SEC.UserAgent,
		RequestsPerSecond: cfg.SEC.RequestsPerSecond,
		Timeout:           cfg.SEC.Timeout(),
		Cache:             cache,
		Observer:          recorder.ObserveSECRequest,
	})
	return NewRunner(client, recorder), cleanup
}
