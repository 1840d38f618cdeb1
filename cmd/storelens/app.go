package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/storelens/internal/competitor"
	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/engine"
	"github.com/IshaanNene/storelens/internal/extract"
	"github.com/IshaanNene/storelens/internal/fetcher"
	"github.com/IshaanNene/storelens/internal/insights"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/storage"
)

// app holds the long-lived components shared by every command.
type app struct {
	fetcher fetcher.Fetcher
	repo    storage.Repository
	metrics *observability.Metrics
	svc     *insights.Service
	logger  *slog.Logger
}

// newApp opens the repository and wires the pipeline around it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	metrics := observability.NewMetrics(logger)

	repo, err := storage.Open(ctx, &cfg.Storage, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	f := fetcher.NewHTTPFetcher(&cfg.Fetcher, metrics, logger)
	agg := engine.New(f, extract.DefaultMatchers(), metrics, logger)

	var lookup competitor.Lookup
	if cfg.Competitors.APIKey != "" {
		lookup = competitor.NewSearchLookup(&cfg.Competitors, logger)
	} else {
		logger.Info("no search API key configured, competitors come from the fallback list")
	}
	resolver := competitor.NewResolver(lookup, &cfg.Competitors, metrics, logger)

	logger.Info("storelens ready", "storage", repo.Name(), "fetcher", f.Type())
	return &app{
		fetcher: f,
		repo:    repo,
		metrics: metrics,
		svc:     insights.NewService(agg, repo, resolver, cfg.Server.RequestTimeout, metrics, logger),
		logger:  logger,
	}, nil
}

// Close releases the repository and fetcher.
func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("close storage", "error", err)
	}
	if err := a.fetcher.Close(); err != nil {
		a.logger.Warn("close fetcher", "error", err)
	}
}
