package extract

import (
	"strings"

	"github.com/IshaanNene/storelens/internal/types"
)

// LinkMatcher decides whether an anchor, given its href and visible
// text, is a candidate for a facet.
type LinkMatcher func(href, text string) bool

// HrefContains matches anchors whose href contains any of subs,
// ignoring case.
func HrefContains(subs ...string) LinkMatcher {
	return func(href, _ string) bool {
		return containsAny(href, subs)
	}
}

// TextContains matches anchors whose visible text contains any of subs,
// ignoring case.
func TextContains(subs ...string) LinkMatcher {
	return func(_, text string) bool {
		return containsAny(text, subs)
	}
}

// HrefOrTextContains matches anchors whose href or visible text
// contains any of subs, ignoring case.
func HrefOrTextContains(subs ...string) LinkMatcher {
	return AnyOf(HrefContains(subs...), TextContains(subs...))
}

// HrefOrTextContainsAll matches anchors whose href, or whose text,
// contains every one of subs.
func HrefOrTextContainsAll(subs ...string) LinkMatcher {
	return func(href, text string) bool {
		return containsAll(href, subs) || containsAll(text, subs)
	}
}

// AnyOf matches when at least one of ms matches.
func AnyOf(ms ...LinkMatcher) LinkMatcher {
	return func(href, text string) bool {
		for _, m := range ms {
			if m(href, text) {
				return true
			}
		}
		return false
	}
}

// Matchers holds the link heuristics used by the facet extractors.
type Matchers struct {
	HeroProduct   LinkMatcher
	PrivacyPolicy LinkMatcher
	ReturnPolicy  LinkMatcher
	FAQ           LinkMatcher
	Contact       LinkMatcher
	About         LinkMatcher
	OrderTracking LinkMatcher
	ContactUs     LinkMatcher
	Blogs         LinkMatcher

	// Social maps a platform name to its profile-link matcher.
	Social map[string]LinkMatcher
}

// DefaultMatchers returns the heuristics tuned for Shopify storefronts.
func DefaultMatchers() Matchers {
	return Matchers{
		// Product links are matched case-sensitively: Shopify paths are lowercase.
		HeroProduct: func(href, _ string) bool {
			return strings.Contains(href, "/products/")
		},
		PrivacyPolicy: HrefContains("privacy"),
		ReturnPolicy:  HrefContains("return", "refund"),
		FAQ:           HrefContains("faq"),
		Contact:       HrefOrTextContains("contact"),
		About:         HrefOrTextContains("about"),
		OrderTracking: AnyOf(
			HrefOrTextContainsAll("order", "track"),
			TextContains("track my order", "order tracking"),
		),
		ContactUs: HrefOrTextContains("contact"),
		Blogs:     HrefOrTextContains("blog"),
		Social: map[string]LinkMatcher{
			types.PlatformInstagram: HrefContains("instagram.com"),
			types.PlatformFacebook:  HrefContains("facebook.com"),
			types.PlatformTikTok:    HrefContains("tiktok.com"),
		},
	}
}

func containsAny(s string, subs []string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func containsAll(s string, subs []string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if !strings.Contains(s, strings.ToLower(sub)) {
			return false
		}
	}
	return len(subs) > 0
}
