// Package competitor resolves the list of competitor storefronts for a
// store, from an explicit list, an external search lookup, or a
// configured fallback.
package competitor

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/observability"
)

// DefaultLimit caps the number of competitors when neither the caller
// nor the configuration provides one.
const DefaultLimit = 5

// Lookup discovers competitor URLs for a store.
type Lookup interface {
	Lookup(ctx context.Context, storeURL string, limit int) ([]string, error)
	Name() string
}

// Resolver picks the competitor list for a store.
type Resolver struct {
	lookup   Lookup
	fallback []string
	limit    int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewResolver creates a resolver. lookup may be nil, in which case the
// fallback list is always used.
func NewResolver(lookup Lookup, cfg *config.CompetitorsConfig, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Resolver{
		lookup:   lookup,
		fallback: append([]string(nil), cfg.Fallback...),
		limit:    limit,
		metrics:  metrics,
		logger:   logger.With("component", "competitor_resolver"),
	}
}

// Resolve returns explicit unchanged when it is non-empty. Otherwise it
// asks the lookup and, when that fails or finds nothing, returns the
// fallback list capped at limit. A limit of zero or less selects the
// configured default. Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context, storeURL string, explicit []string, limit int) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if limit <= 0 {
		limit = r.limit
	}

	if r.lookup != nil {
		if r.metrics != nil {
			r.metrics.LookupsTotal.Add(1)
		}
		found, err := r.lookup.Lookup(ctx, storeURL, limit)
		switch {
		case err != nil:
			r.logger.Warn("competitor lookup failed, using fallback",
				"store", storeURL, "provider", r.lookup.Name(), "error", err)
		case len(found) == 0:
			r.logger.Info("competitor lookup found nothing, using fallback",
				"store", storeURL, "provider", r.lookup.Name())
		default:
			return capped(found, limit)
		}
	}

	if r.metrics != nil {
		r.metrics.LookupFallbacks.Add(1)
	}
	return capped(r.fallback, limit)
}

func capped(urls []string, limit int) []string {
	n := min(limit, len(urls))
	out := make([]string, n)
	copy(out, urls[:n])
	return out
}
