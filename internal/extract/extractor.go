// Package extract derives the facets of a store's brand context from its
// public pages. Every extractor fails soft: it returns the facet's empty
// value together with the cause instead of an error.
package extract

import (
	"context"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/storelens/internal/fetcher"
	"github.com/IshaanNene/storelens/internal/types"
)

// Text limits applied to extracted free text, in runes.
const (
	MaxAboutLength   = 1000
	MaxAddressLength = 200
	MaxInfoLength    = 300
	MaxHeroProducts  = 5

	otherInfoLines   = 3
	otherInfoMinRune = 20
)

// Extractor runs facet extractors against a store.
type Extractor struct {
	fetcher  fetcher.Fetcher
	matchers Matchers
	logger   *slog.Logger
}

// New creates an Extractor that loads pages through f.
func New(f fetcher.Fetcher, matchers Matchers, logger *slog.Logger) *Extractor {
	return &Extractor{
		fetcher:  f,
		matchers: matchers,
		logger:   logger.With("component", "extractor"),
	}
}

// document fetches rawURL and parses it.
func (e *Extractor) document(ctx context.Context, rawURL string) (*types.Response, *goquery.Document, error) {
	resp, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, nil, err
	}
	return resp, doc, nil
}

// homeAnchors returns the anchors of the store's home page.
func (e *Extractor) homeAnchors(ctx context.Context, baseURL string) ([]anchor, error) {
	_, doc, err := e.document(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return anchors(doc), nil
}
