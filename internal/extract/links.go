package extract

import (
	"context"

	"github.com/IshaanNene/storelens/internal/types"
)

// Policies returns the last privacy and return/refund policy links on the
// home page.
func (e *Extractor) Policies(ctx context.Context, baseURL string) Result[types.Policy] {
	list, err := e.homeAnchors(ctx, baseURL)
	if err != nil {
		return Empty(types.Policy{}, err)
	}

	var p types.Policy
	if u, ok := lastMatch(list, e.matchers.PrivacyPolicy, baseURL); ok {
		p.PrivacyPolicy = &u
	}
	if u, ok := lastMatch(list, e.matchers.ReturnPolicy, baseURL); ok {
		p.ReturnPolicy = &u
	}
	return Found(p)
}

// SocialHandles returns the last profile link per recognised platform.
func (e *Extractor) SocialHandles(ctx context.Context, baseURL string) Result[map[string]string] {
	list, err := e.homeAnchors(ctx, baseURL)
	if err != nil {
		return Empty(map[string]string{}, err)
	}

	handles := map[string]string{}
	for _, a := range list {
		for platform, m := range e.matchers.Social {
			if m(a.Href, a.Text) {
				handles[platform] = a.Href
			}
		}
	}
	return Found(handles)
}

// ImportantLinks classifies home page anchors into order tracking,
// contact and blog links. The last match per category wins and one
// anchor may fill several categories.
func (e *Extractor) ImportantLinks(ctx context.Context, baseURL string) Result[types.Links] {
	list, err := e.homeAnchors(ctx, baseURL)
	if err != nil {
		return Empty(types.Links{}, err)
	}

	var l types.Links
	if u, ok := lastMatch(list, e.matchers.OrderTracking, baseURL); ok {
		l.OrderTracking = &u
	}
	if u, ok := lastMatch(list, e.matchers.ContactUs, baseURL); ok {
		l.ContactUs = &u
	}
	if u, ok := lastMatch(list, e.matchers.Blogs, baseURL); ok {
		l.Blogs = &u
	}
	return Found(l)
}
