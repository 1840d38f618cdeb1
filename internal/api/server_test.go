package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/storelens/internal/competitor"
	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/engine"
	"github.com/IshaanNene/storelens/internal/extract"
	"github.com/IshaanNene/storelens/internal/fetcher"
	"github.com/IshaanNene/storelens/internal/insights"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/storage"
	"github.com/IshaanNene/storelens/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeService struct {
	bc       *types.BrandContext
	err      error
	gotURL   string
	explicit []string
}

func (f *fakeService) Insights(_ context.Context, rawURL string) (*types.BrandContext, error) {
	f.gotURL = rawURL
	return f.bc, f.err
}

func (f *fakeService) Competitors(_ context.Context, rawURL string, explicit []string, _ int) (string, []string, error) {
	f.gotURL = rawURL
	f.explicit = explicit
	if f.err != nil {
		return "", nil, f.err
	}
	if len(explicit) > 0 {
		return "https://" + rawURL, explicit, nil
	}
	return "https://" + rawURL, []string{"https://fallback.example"}, nil
}

func newTestServer(svc InsightsService) *httptest.Server {
	cfg := config.DefaultConfig()
	return httptest.NewServer(NewServer(cfg, svc, observability.NewMetrics(testLogger), testLogger).Handler())
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestInsightsStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"unreachable", fmt.Errorf("%w: %w", types.ErrSiteNotFound, &types.FetchError{URL: "x", StatusCode: 503}), http.StatusUnauthorized, "Website not found"},
		{"persistence", &types.StorageError{Backend: "sqlite", Op: "store", Err: errors.New("disk full")}, http.StatusInternalServerError, "storage error (sqlite store): disk full"},
		{"invalid url", fmt.Errorf("%w: bad", types.ErrInvalidURL), http.StatusBadRequest, "invalid URL: bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeService{err: tt.err})
			defer srv.Close()

			resp, body := post(t, srv.URL+"/fetch_store_insights", `{"website_url":"acme.example"}`)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body["detail"] != tt.wantDetail {
				t.Errorf("detail = %v, want %q", body["detail"], tt.wantDetail)
			}
		})
	}
}

func TestInsightsRequestShapes(t *testing.T) {
	svc := &fakeService{bc: types.NewBrandContext()}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, body := post(t, srv.URL+"/fetch_store_insights?website_url=query.example", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if svc.gotURL != "query.example" {
		t.Errorf("expected url from query parameter, got %q", svc.gotURL)
	}
	if _, ok := body["product_catalog"]; !ok {
		t.Errorf("expected brand context shape, got %v", body)
	}

	resp, _ = post(t, srv.URL+"/fetch_store_insights", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing url: status = %d, want 400", resp.StatusCode)
	}
	resp, _ = post(t, srv.URL+"/fetch_store_insights", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", resp.StatusCode)
	}
}

func TestGetCompetitors(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, body := post(t, srv.URL+"/get_competitors", `{"website_url":"acme.example","competitor_urls":["https://x.com"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := map[string]any{"main": "https://acme.example", "competitors": []any{"https://x.com"}}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected metrics response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

// TestInsightsServedFromRepository runs the full stack against a fixture
// storefront and checks that a repeat request does not scrape again.
func TestInsightsServedFromRepository(t *testing.T) {
	var homeHits atomic.Int32
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			homeHits.Add(1)
			fmt.Fprint(w, `<html><head><title>Acme</title></head><body>
				<a href="/products/shirt">Shirt</a>
				<a href="/pages/faq">FAQ</a></body></html>`)
		case "/pages/faq":
			fmt.Fprint(w, `<h3>Returns?</h3><p>Within 30 days.</p>`)
		case "/products.json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"products":[{"title":"Shirt","id":1}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer store.Close()

	cfg := config.DefaultConfig()
	m := observability.NewMetrics(testLogger)
	f := fetcher.NewHTTPFetcher(&cfg.Fetcher, m, testLogger)
	agg := engine.New(f, extract.DefaultMatchers(), m, testLogger)
	repo := storage.NewMemoryRepository(m, testLogger)
	resolver := competitor.NewResolver(nil, &cfg.Competitors, m, testLogger)
	svc := insights.NewService(agg, repo, resolver, cfg.Server.RequestTimeout, m, testLogger)

	srv := httptest.NewServer(NewServer(cfg, svc, m, testLogger).Handler())
	defer srv.Close()

	reqBody := fmt.Sprintf(`{"website_url":%q}`, store.URL+"/")
	resp1, first := post(t, srv.URL+"/fetch_store_insights", reqBody)
	resp2, second := post(t, srv.URL+"/fetch_store_insights", reqBody)
	if resp1.StatusCode != http.StatusOK || resp2.StatusCode != http.StatusOK {
		t.Fatalf("statuses %d, %d", resp1.StatusCode, resp2.StatusCode)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second response differs (-first +second):\n%s", diff)
	}
	if n := homeHits.Load(); n != 1 {
		t.Errorf("expected one scrape, home page fetched %d times", n)
	}
	if first["brand_name"] != "Acme" {
		t.Errorf("brand_name = %v", first["brand_name"])
	}
	faqs, _ := first["faqs"].([]any)
	if len(faqs) != 1 {
		t.Errorf("expected 1 faq, got %v", first["faqs"])
	}
}
