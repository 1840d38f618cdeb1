package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for the insights pipeline.
type Metrics struct {
	// Fetch metrics
	FetchesTotal    atomic.Int64
	FetchesFailed   atomic.Int64
	BytesDownloaded atomic.Int64

	// Pipeline metrics
	ScrapesTotal  atomic.Int64
	ScrapesFailed atomic.Int64
	FacetFailures atomic.Int64

	// Repository metrics
	CacheHits    atomic.Int64
	CacheMisses  atomic.Int64
	StoresTotal  atomic.Int64
	StoresFailed atomic.Int64

	// Competitor metrics
	LookupsTotal    atomic.Int64
	LookupFallbacks atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.series() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

type series struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) series() []series {
	return []series{
		{"storelens_fetches_total", "Total page fetches attempted", m.FetchesTotal.Load()},
		{"storelens_fetches_failed_total", "Total page fetches that failed", m.FetchesFailed.Load()},
		{"storelens_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"storelens_scrapes_total", "Total store scrapes started", m.ScrapesTotal.Load()},
		{"storelens_scrapes_failed_total", "Total store scrapes that failed", m.ScrapesFailed.Load()},
		{"storelens_facet_failures_total", "Total facets that fell back to empty", m.FacetFailures.Load()},
		{"storelens_cache_hits_total", "Total repository hits", m.CacheHits.Load()},
		{"storelens_cache_misses_total", "Total repository misses", m.CacheMisses.Load()},
		{"storelens_stores_total", "Total records persisted", m.StoresTotal.Load()},
		{"storelens_stores_failed_total", "Total failed persist attempts", m.StoresFailed.Load()},
		{"storelens_competitor_lookups_total", "Total competitor resolutions", m.LookupsTotal.Load()},
		{"storelens_competitor_fallbacks_total", "Total resolutions served from the fallback list", m.LookupFallbacks.Load()},
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_total":    m.FetchesTotal.Load(),
		"fetches_failed":   m.FetchesFailed.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
		"scrapes_total":    m.ScrapesTotal.Load(),
		"scrapes_failed":   m.ScrapesFailed.Load(),
		"facet_failures":   m.FacetFailures.Load(),
		"cache_hits":       m.CacheHits.Load(),
		"cache_misses":     m.CacheMisses.Load(),
		"stores_total":     m.StoresTotal.Load(),
		"stores_failed":    m.StoresFailed.Load(),
		"lookups_total":    m.LookupsTotal.Load(),
		"lookup_fallbacks": m.LookupFallbacks.Load(),
	}
}
