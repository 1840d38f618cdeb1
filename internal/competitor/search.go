package competitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/types"
)

const searchProvider = "serpapi"

// SearchLookup finds competitors through a SerpAPI-compatible web search
// endpoint, querying "<host> competitors" and keeping the organic result
// links.
type SearchLookup struct {
	client   *resty.Client
	endpoint string
	engine   string
	apiKey   string
	logger   *slog.Logger
}

type searchResponse struct {
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// NewSearchLookup creates a lookup from the competitors config. Without
// an API key every call fails with ErrLookupDisabled.
func NewSearchLookup(cfg *config.CompetitorsConfig, logger *slog.Logger) *SearchLookup {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")

	return &SearchLookup{
		client:   client,
		endpoint: cfg.Endpoint,
		engine:   cfg.Engine,
		apiKey:   cfg.APIKey,
		logger:   logger.With("component", "search_lookup"),
	}
}

func (l *SearchLookup) Name() string { return searchProvider }

// Lookup returns up to limit competitor origins, excluding the store's
// own host and repeated hosts.
func (l *SearchLookup) Lookup(ctx context.Context, storeURL string, limit int) ([]string, error) {
	if l.apiKey == "" {
		return nil, &types.LookupError{Provider: searchProvider, Err: types.ErrLookupDisabled}
	}

	own, err := url.Parse(storeURL)
	if err != nil || own.Host == "" {
		return nil, &types.LookupError{Provider: searchProvider, Err: fmt.Errorf("%w: %q", types.ErrInvalidURL, storeURL)}
	}
	ownHost := bareHost(own.Host)

	var result searchResponse
	res, err := l.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"engine":  l.engine,
			"q":       ownHost + " competitors",
			"api_key": l.apiKey,
			"num":     strconv.Itoa(limit * 2),
		}).
		SetResult(&result).
		Get(l.endpoint)
	if err != nil {
		return nil, &types.LookupError{Provider: searchProvider, Err: err}
	}
	if res.IsError() {
		return nil, &types.LookupError{Provider: searchProvider, Err: fmt.Errorf("status %d", res.StatusCode())}
	}
	if result.Error != "" {
		return nil, &types.LookupError{Provider: searchProvider, Err: errors.New(result.Error)}
	}

	seen := map[string]bool{ownHost: true}
	var out []string
	for _, r := range result.OrganicResults {
		if len(out) >= limit {
			break
		}
		u, err := url.Parse(r.Link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		host := bareHost(u.Host)
		if seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, u.Scheme+"://"+u.Host)
	}

	l.logger.Debug("competitor lookup complete", "store", storeURL, "results", len(result.OrganicResults), "kept", len(out))
	return out, nil
}

func bareHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
