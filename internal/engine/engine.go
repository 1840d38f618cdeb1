// Package engine assembles a store's BrandContext by running every facet
// extractor concurrently against the same base URL.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/storelens/internal/extract"
	"github.com/IshaanNene/storelens/internal/fetcher"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

// Aggregator orchestrates the facet extractors for one store at a time.
// It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	fetcher  fetcher.Fetcher
	matchers extract.Matchers
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates an Aggregator. metrics may be nil.
func New(f fetcher.Fetcher, matchers extract.Matchers, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		fetcher:  f,
		matchers: matchers,
		metrics:  metrics,
		logger:   logger.With("component", "aggregator"),
	}
}

// Aggregate scrapes baseURL and returns its brand context. The only
// errors are an unreachable home page (wrapping types.ErrSiteNotFound
// and the *types.FetchError) and cancellation of ctx.
func (a *Aggregator) Aggregate(ctx context.Context, baseURL string) (*types.BrandContext, error) {
	start := time.Now()
	if a.metrics != nil {
		a.metrics.ScrapesTotal.Add(1)
	}

	pages := newPageMemo(a.fetcher)
	if _, err := pages.Fetch(ctx, baseURL); err != nil {
		if a.metrics != nil {
			a.metrics.ScrapesFailed.Add(1)
		}
		// A fetch cut short by the caller says nothing about the site.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", types.ErrSiteNotFound, err)
	}

	ex := extract.New(pages, a.matchers, a.logger)
	bc := &types.BrandContext{}

	// Each goroutine owns exactly one field of bc. Facet failures are
	// absorbed into empty values, so the only group error is ctx ending,
	// which abandons the remaining fetches.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r := ex.BrandName(gctx, baseURL)
		a.note(baseURL, "brand_name", r.Err)
		bc.BrandName = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.ProductCatalog(gctx, baseURL)
		a.note(baseURL, "product_catalog", r.Err)
		bc.ProductCatalog = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.HeroProducts(gctx, baseURL)
		a.note(baseURL, "hero_products", r.Err)
		bc.HeroProducts = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.Policies(gctx, baseURL)
		a.note(baseURL, "policies", r.Err)
		bc.Policies = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.FAQs(gctx, baseURL)
		a.note(baseURL, "faqs", r.Err)
		bc.FAQs = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.SocialHandles(gctx, baseURL)
		a.note(baseURL, "social_handles", r.Err)
		bc.SocialHandles = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.Contact(gctx, baseURL)
		a.note(baseURL, "contact", r.Err)
		bc.Contact = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.About(gctx, baseURL)
		a.note(baseURL, "about", r.Err)
		bc.About = r.Value
		return gctx.Err()
	})
	g.Go(func() error {
		r := ex.ImportantLinks(gctx, baseURL)
		a.note(baseURL, "links", r.Err)
		bc.Links = r.Value
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		if a.metrics != nil {
			a.metrics.ScrapesFailed.Add(1)
		}
		return nil, err
	}

	bc.Normalize()
	a.logger.Info("store aggregated",
		"url", baseURL,
		"products", len(bc.ProductCatalog),
		"faqs", len(bc.FAQs),
		"duration", time.Since(start),
	)
	return bc, nil
}

// note records a facet that fell back to its empty value.
func (a *Aggregator) note(baseURL, facet string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, types.ErrNoCandidate) {
		a.logger.Debug("facet has no candidate page", "url", baseURL, "facet", facet)
		return
	}
	if a.metrics != nil {
		a.metrics.FacetFailures.Add(1)
	}
	a.logger.Debug("facet empty", "url", baseURL, "facet", facet, "error", err)
}
