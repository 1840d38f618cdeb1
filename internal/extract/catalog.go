package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/IshaanNene/storelens/internal/types"
)

// BrandName returns the home page document title.
func (e *Extractor) BrandName(ctx context.Context, baseURL string) Result[*string] {
	_, doc, err := e.document(ctx, baseURL)
	if err != nil {
		return Empty[*string](nil, err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return Empty[*string](nil, &types.ParseError{URL: baseURL, Selector: "title", Err: errors.New("missing title")})
	}
	return Found(&title)
}

// ProductCatalog returns the products array of the store's products.json
// feed, unmodified.
func (e *Extractor) ProductCatalog(ctx context.Context, baseURL string) Result[[]types.Product] {
	feedURL := strings.TrimRight(baseURL, "/") + "/products.json"
	resp, err := e.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return Empty([]types.Product{}, err)
	}

	var feed struct {
		Products []types.Product `json:"products"`
	}
	if err := json.Unmarshal(resp.Body, &feed); err != nil {
		return Empty([]types.Product{}, &types.ParseError{URL: feedURL, Err: err})
	}
	if feed.Products == nil {
		feed.Products = []types.Product{}
	}
	return Found(feed.Products)
}

// HeroProducts returns up to MaxHeroProducts product links from the home
// page in document order. Repeated products are kept.
func (e *Extractor) HeroProducts(ctx context.Context, baseURL string) Result[[]types.HeroProduct] {
	list, err := e.homeAnchors(ctx, baseURL)
	if err != nil {
		return Empty([]types.HeroProduct{}, err)
	}

	hero := []types.HeroProduct{}
	for _, a := range list {
		if !e.matchers.HeroProduct(a.Href, a.Text) || a.Text == "" {
			continue
		}
		hero = append(hero, types.HeroProduct{Name: a.Text, URL: resolve(baseURL, a.Href)})
		if len(hero) == MaxHeroProducts {
			break
		}
	}
	return Found(hero)
}
