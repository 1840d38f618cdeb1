// Package insights serves brand contexts through the repository, running
// the scraping pipeline only for stores that have not been seen before.
package insights

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/IshaanNene/storelens/internal/competitor"
	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/storage"
	"github.com/IshaanNene/storelens/internal/types"
)

// Scraper assembles a brand context for a store URL.
type Scraper interface {
	Aggregate(ctx context.Context, storeURL string) (*types.BrandContext, error)
}

// Service is the read-through entry point used by the API and the CLI.
type Service struct {
	scraper  Scraper
	repo     storage.Repository
	resolver *competitor.Resolver
	group    singleflight.Group
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService wires the pipeline, repository and competitor resolver.
// scrapeTimeout bounds each scrape; zero leaves it unbounded.
func NewService(scraper Scraper, repo storage.Repository, resolver *competitor.Resolver, scrapeTimeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		scraper:  scraper,
		repo:     repo,
		resolver: resolver,
		timeout:  scrapeTimeout,
		metrics:  metrics,
		logger:   logger.With("component", "insights"),
	}
}

// Insights returns the brand context for rawURL. A stored record is
// returned as is; otherwise the store is scraped and the result
// persisted before it is returned. Concurrent misses for the same store
// share one scrape. The shared scrape is not tied to any caller's ctx:
// a caller that gives up stops waiting, and the others are unaffected.
//
// Errors wrap types.ErrInvalidURL, types.ErrSiteNotFound, or are a
// *types.StorageError when the result could not be persisted.
func (s *Service) Insights(ctx context.Context, rawURL string) (*types.BrandContext, error) {
	storeURL, err := config.NormalizeStoreURL(rawURL)
	if err != nil {
		return nil, err
	}

	if rec, ok := s.repo.Lookup(ctx, storeURL); ok {
		s.count(true)
		s.logger.Debug("served from repository", "url", storeURL, "id", rec.ID)
		return rec.Context, nil
	}
	s.count(false)

	ch := s.group.DoChan(storeURL, func() (any, error) {
		scrapeCtx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			scrapeCtx, cancel = context.WithTimeout(scrapeCtx, s.timeout)
			defer cancel()
		}
		return s.scrapeAndStore(scrapeCtx, storeURL)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		bc := res.Val.(*types.BrandContext)
		if res.Shared {
			return bc.Clone()
		}
		return bc, nil
	case <-ctx.Done():
		s.logger.Debug("caller stopped waiting for scrape", "url", storeURL, "error", ctx.Err())
		return nil, ctx.Err()
	}
}

func (s *Service) scrapeAndStore(ctx context.Context, storeURL string) (*types.BrandContext, error) {
	bc, err := s.scraper.Aggregate(ctx, storeURL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Store(ctx, storeURL, bc); err != nil {
		s.logger.Error("persist brand context", "url", storeURL, "backend", s.repo.Name(), "error", err)
		return nil, err
	}
	s.logger.Info("store scraped", "url", storeURL)
	return bc, nil
}

// Competitors normalizes rawURL and resolves its competitor list.
func (s *Service) Competitors(ctx context.Context, rawURL string, explicit []string, limit int) (string, []string, error) {
	storeURL, err := config.NormalizeStoreURL(rawURL)
	if err != nil {
		return "", nil, err
	}
	return storeURL, s.resolver.Resolve(ctx, storeURL, explicit, limit), nil
}

func (s *Service) count(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.Add(1)
	} else {
		s.metrics.CacheMisses.Add(1)
	}
}
