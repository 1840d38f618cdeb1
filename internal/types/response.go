package types

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Response represents the result of fetching a page.
type Response struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the raw (decoded) response body.
	Body []byte

	mu  sync.Mutex
	doc *goquery.Document
}

// NewResponse creates a Response from an http.Response and its decoded body.
func NewResponse(rawURL string, httpResp *http.Response, body []byte) *Response {
	finalURL := rawURL
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Response{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}
}

// Document returns a parsed goquery document, lazily initializing it.
// The document is parsed once and may be shared between goroutines, so
// callers must not mutate it.
func (r *Response) Document() (*goquery.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, &ParseError{URL: r.URL, Err: err}
	}
	r.doc = doc
	return doc, nil
}
