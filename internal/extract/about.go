package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/storelens/internal/types"
)

// richTextSelector matches the content region of Shopify page templates.
const richTextSelector = ".rte, .rich-text, [class*='rich-text']"

// About follows the first about link on the home page and returns the
// page's main text.
func (e *Extractor) About(ctx context.Context, baseURL string) Result[*string] {
	list, err := e.homeAnchors(ctx, baseURL)
	if err != nil {
		return Empty[*string](nil, err)
	}
	aboutURL, ok := firstMatch(list, e.matchers.About, baseURL)
	if !ok {
		return Empty[*string](nil, types.ErrNoCandidate)
	}

	_, doc, err := e.document(ctx, aboutURL)
	if err != nil {
		return Empty[*string](nil, err)
	}
	// The document may be shared, so strip scripts from a copy.
	region := contentRegion(doc).Clone()
	region.Find("script, style, noscript").Remove()
	text := truncate(collapseSpace(region.Text()), MaxAboutLength)
	return Found(types.StringPtr(text))
}

// contentRegion picks <main>, else the rich-text region, else the body.
func contentRegion(doc *goquery.Document) *goquery.Selection {
	if main := doc.Find("main").First(); main.Length() > 0 {
		return main
	}
	if rte := doc.Find(richTextSelector).First(); rte.Length() > 0 {
		return rte
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}
