package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/extract"
	"github.com/IshaanNene/storelens/internal/fetcher"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const homePage = `<!DOCTYPE html>
<html>
<head><title>Acme Outfitters</title></head>
<body>
  <nav>
    <a href="/pages/about-us">About</a>
    <a href="/pages/contact">Contact</a>
    <a href="/pages/faq">FAQ</a>
    <a href="/blogs/journal">Blog</a>
    <a href="/apps/order-tracking">Track</a>
  </nav>
  <section>
    <a href="/products/shirt">Shirt</a>
    <a href="/products/pants">Pants</a>
  </section>
  <footer>
    <a href="/policies/privacy-policy">Privacy</a>
    <a href="/policies/refund-policy">Refunds</a>
    <a href="https://instagram.com/acme">Instagram</a>
  </footer>
</body>
</html>`

// site is a fixture storefront that counts requests per path.
type site struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
}

func newSite() *site {
	return &site{
		hits: make(map[string]int),
		pages: map[string]string{
			"/":                    homePage,
			"/products.json":       `{"products":[{"title":"Shirt","handle":"shirt"}]}`,
			"/pages/faq":           `<h2>Do you ship abroad?</h2><p>Yes.</p>`,
			"/pages/contact":       "<p>Email hello@acme.example</p>\n<p>Address: 1 Main St</p>",
			"/pages/about-us":      `<main>Acme makes durable clothing.</main>`,
			"/blogs/journal":       `<p>posts</p>`,
			"/apps/order-tracking": `<p>track</p>`,
		},
	}
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.pages[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func (s *site) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newAggregator() (*Aggregator, *observability.Metrics) {
	cfg := config.DefaultConfig().Fetcher
	cfg.Timeout = 5 * time.Second
	m := observability.NewMetrics(testLogger)
	f := fetcher.NewHTTPFetcher(&cfg, m, testLogger)
	return New(f, extract.DefaultMatchers(), m, testLogger), m
}

func TestAggregateAssemblesEveryFacet(t *testing.T) {
	s := newSite()
	srv := httptest.NewServer(s)
	defer srv.Close()

	agg, _ := newAggregator()
	bc, err := agg.Aggregate(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	want := &types.BrandContext{
		BrandName:      types.StringPtr("Acme Outfitters"),
		ProductCatalog: []types.Product{{"title": "Shirt", "handle": "shirt"}},
		HeroProducts: []types.HeroProduct{
			{Name: "Shirt", URL: srv.URL + "/products/shirt"},
			{Name: "Pants", URL: srv.URL + "/products/pants"},
		},
		Policies: types.Policy{
			PrivacyPolicy: types.StringPtr(srv.URL + "/policies/privacy-policy"),
			ReturnPolicy:  types.StringPtr(srv.URL + "/policies/refund-policy"),
		},
		FAQs:          []types.FAQ{{Question: "Do you ship abroad?", Answer: "Yes."}},
		SocialHandles: map[string]string{types.PlatformInstagram: "https://instagram.com/acme"},
		Contact: types.Contact{
			Emails:    []string{"hello@acme.example"},
			Phones:    []string{},
			Address:   types.StringPtr("Address: 1 Main St"),
			OtherInfo: types.StringPtr("Email hello@acme.example"),
		},
		About: types.StringPtr("Acme makes durable clothing."),
		Links: types.Links{
			OrderTracking: types.StringPtr(srv.URL + "/apps/order-tracking"),
			ContactUs:     types.StringPtr(srv.URL + "/pages/contact"),
			Blogs:         types.StringPtr(srv.URL + "/blogs/journal"),
		},
	}
	if diff := cmp.Diff(want, bc); diff != "" {
		t.Errorf("brand context mismatch (-want +got):\n%s", diff)
	}

	// The home page is shared by every home-page extractor.
	if n := s.count("/"); n != 1 {
		t.Errorf("expected home page fetched once, got %d", n)
	}
}

func TestAggregateUnreachableSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	agg, m := newAggregator()
	_, err := agg.Aggregate(context.Background(), srv.URL)
	if !errors.Is(err, types.ErrSiteNotFound) {
		t.Fatalf("expected ErrSiteNotFound, got %v", err)
	}
	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected wrapped FetchError with 503, got %v", err)
	}
	if m.ScrapesFailed.Load() != 1 {
		t.Errorf("expected failed scrape to be counted")
	}
}

func TestAggregateBrokenFacetsAreEmpty(t *testing.T) {
	s := newSite()
	delete(s.pages, "/pages/faq")
	delete(s.pages, "/products.json")
	srv := httptest.NewServer(s)
	defer srv.Close()

	agg, m := newAggregator()
	bc, err := agg.Aggregate(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("facet failures must not fail the scrape: %v", err)
	}
	if bc.FAQs == nil || len(bc.FAQs) != 0 {
		t.Errorf("expected empty faqs, got %+v", bc.FAQs)
	}
	if bc.ProductCatalog == nil || len(bc.ProductCatalog) != 0 {
		t.Errorf("expected empty catalog, got %+v", bc.ProductCatalog)
	}
	if m.FacetFailures.Load() != 2 {
		t.Errorf("expected 2 facet failures, got %d", m.FacetFailures.Load())
	}
}

func TestAggregateCancelled(t *testing.T) {
	s := newSite()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		s.ServeHTTP(w, r)
	}))
	defer srv.Close()
	defer close(release)

	agg, _ := newAggregator()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := agg.Aggregate(ctx, srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("in-flight fetches were not abandoned")
	}
}

func TestPageMemoFetchesOnce(t *testing.T) {
	s := newSite()
	srv := httptest.NewServer(s)
	defer srv.Close()

	cfg := config.DefaultConfig().Fetcher
	memo := newPageMemo(fetcher.NewHTTPFetcher(&cfg, nil, testLogger))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := memo.Fetch(context.Background(), srv.URL+"/pages/faq"); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := s.count("/pages/faq"); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestAggregateCancelledBeforeHomeFetch(t *testing.T) {
	srv := httptest.NewServer(newSite())
	defer srv.Close()

	agg, m := newAggregator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Aggregate(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, types.ErrSiteNotFound) {
		t.Error("a cancelled request must not be reported as an unreachable site")
	}
	if m.ScrapesFailed.Load() != 1 {
		t.Errorf("expected failed scrape to be counted")
	}
}
