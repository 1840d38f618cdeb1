package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(timeout time.Duration) (*HTTPFetcher, *observability.Metrics) {
	cfg := config.DefaultConfig().Fetcher
	cfg.Timeout = timeout
	m := observability.NewMetrics(testLogger)
	return NewHTTPFetcher(&cfg, m, testLogger), m
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><title>Shop</title></html>"))
	}))
	defer srv.Close()

	f, m := newTestFetcher(5 * time.Second)
	defer f.Close()

	resp, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != "<html><title>Shop</title></html>" {
		t.Errorf("unexpected response: %d %q", resp.StatusCode, resp.Body)
	}
	doc, err := resp.Document()
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Find("title").Text() != "Shop" {
		t.Errorf("unexpected title %q", doc.Find("title").Text())
	}
	if m.FetchesTotal.Load() != 1 || m.FetchesFailed.Load() != 0 {
		t.Errorf("unexpected metrics: %v", m.Snapshot())
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f, m := newTestFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL+"/products.json")

	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", fe.StatusCode)
	}
	if m.FetchesFailed.Load() != 1 {
		t.Errorf("expected a failed fetch to be counted")
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f, _ := newTestFetcher(50 * time.Millisecond)
	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL)
	if !types.IsFetchError(err) {
		t.Fatalf("expected FetchError on timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout not enforced, took %s", time.Since(start))
	}
}

func TestFetchUnreachable(t *testing.T) {
	f, _ := newTestFetcher(time.Second)
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")
	if !types.IsFetchError(err) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestFetchDecompression(t *testing.T) {
	const page = "<p>compressed body</p>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			gz.Write([]byte(page))
			gz.Close()
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			br := brotli.NewWriter(w)
			br.Write([]byte(page))
			br.Close()
		}
	}))
	defer srv.Close()

	f, _ := newTestFetcher(5 * time.Second)
	for _, path := range []string{"/gzip", "/br"} {
		resp, err := f.Fetch(context.Background(), srv.URL+path)
		if err != nil {
			t.Fatalf("%s: fetch: %v", path, err)
		}
		if string(resp.Body) != page {
			t.Errorf("%s: expected decoded body, got %q", path, resp.Body)
		}
	}
}

func TestFetchThroughProxy(t *testing.T) {
	var proxied atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Add(1)
		if r.URL.Host != "shop.invalid" {
			t.Errorf("expected absolute request for shop.invalid, got %q", r.URL.String())
		}
		w.Write([]byte("<html><title>Via proxy</title></html>"))
	}))
	defer proxy.Close()

	cfg := config.DefaultConfig().Fetcher
	cfg.Proxies = []string{proxy.URL}
	f := NewHTTPFetcher(&cfg, nil, testLogger)

	resp, err := f.Fetch(context.Background(), "http://shop.invalid/")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(string(resp.Body), "Via proxy") || proxied.Load() != 1 {
		t.Errorf("request did not go through the proxy")
	}
}

func TestProxyPoolRotation(t *testing.T) {
	if NewProxyPool([]string{"::bad", ""}, "round_robin", testLogger) != nil {
		t.Fatal("expected nil pool without usable proxies")
	}

	pool := NewProxyPool([]string{"http://p1:8080", "::bad", "http://p2:8080"}, "round_robin", testLogger)
	if pool.Len() != 2 {
		t.Fatalf("expected 2 proxies, got %d", pool.Len())
	}
	var got []string
	for range 4 {
		got = append(got, pool.Next().Host)
	}
	want := []string{"p1:8080", "p2:8080", "p1:8080", "p2:8080"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}

	random := NewProxyPool([]string{"http://p1:8080"}, "random", testLogger)
	if random.Next().Host != "p1:8080" {
		t.Error("random rotation over one proxy must return it")
	}
}
