package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// anchor is an <a href> element reduced to what the heuristics look at.
type anchor struct {
	Href string
	Text string
}

// anchors returns every anchor with a usable href, in document order.
func anchors(doc *goquery.Document) []anchor {
	var out []anchor
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		out = append(out, anchor{Href: href, Text: collapseSpace(sel.Text())})
	})
	return out
}

// firstMatch returns the first anchor matching m whose resolved URL is
// fetchable over http(s).
func firstMatch(list []anchor, m LinkMatcher, baseURL string) (string, bool) {
	for _, a := range list {
		if !m(a.Href, a.Text) {
			continue
		}
		if u, ok := resolveHTTP(baseURL, a.Href); ok {
			return u, true
		}
	}
	return "", false
}

// lastMatch returns the resolved href of the last anchor matching m.
func lastMatch(list []anchor, m LinkMatcher, baseURL string) (string, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		if m(list[i].Href, list[i].Text) {
			return resolve(baseURL, list[i].Href), true
		}
	}
	return "", false
}

// resolve makes href absolute against baseURL. Unparseable input is
// returned unchanged.
func resolve(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func resolveHTTP(baseURL, href string) (string, bool) {
	abs := resolve(baseURL, href)
	u, err := url.Parse(abs)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return abs, true
}
