package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/antchfx/htmlquery"

	"github.com/IshaanNene/storelens/internal/types"
)

const (
	faqHeadingXPath = "//*[self::h2 or self::h3]"
	faqAnswerXPath  = "following::p[1]"
)

// FAQs follows the first FAQ link on the home page and pairs every h2/h3
// question with the paragraph that follows it.
func (e *Extractor) FAQs(ctx context.Context, baseURL string) Result[[]types.FAQ] {
	list, err := e.homeAnchors(ctx, baseURL)
	if err != nil {
		return Empty([]types.FAQ{}, err)
	}
	faqURL, ok := firstMatch(list, e.matchers.FAQ, baseURL)
	if !ok {
		return Empty([]types.FAQ{}, types.ErrNoCandidate)
	}

	resp, err := e.fetcher.Fetch(ctx, faqURL)
	if err != nil {
		return Empty([]types.FAQ{}, err)
	}
	faqs, err := parseFAQs(resp.Body)
	if err != nil {
		return Empty([]types.FAQ{}, &types.ParseError{URL: faqURL, Selector: faqHeadingXPath, Err: err})
	}
	return Found(faqs)
}

func parseFAQs(body []byte) ([]types.FAQ, error) {
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	headings, err := htmlquery.QueryAll(root, faqHeadingXPath)
	if err != nil {
		return nil, err
	}

	faqs := []types.FAQ{}
	for _, h := range headings {
		question := collapseSpace(htmlquery.InnerText(h))
		if !strings.HasSuffix(question, "?") {
			continue
		}
		var answer string
		if p := htmlquery.FindOne(h, faqAnswerXPath); p != nil {
			answer = collapseSpace(htmlquery.InnerText(p))
		}
		faqs = append(faqs, types.FAQ{Question: question, Answer: answer})
	}
	return faqs, nil
}
