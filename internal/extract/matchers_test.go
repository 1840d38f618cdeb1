package extract

import (
	"strings"
	"testing"

	"github.com/IshaanNene/storelens/internal/types"
)

func TestDefaultMatchers(t *testing.T) {
	m := DefaultMatchers()

	tests := []struct {
		name    string
		matcher LinkMatcher
		href    string
		text    string
		want    bool
	}{
		{"hero product", m.HeroProduct, "/products/shirt", "Shirt", true},
		{"hero collection", m.HeroProduct, "/collections/shirts", "Shirts", false},
		{"privacy", m.PrivacyPolicy, "/policies/PRIVACY-policy", "", true},
		{"privacy text only", m.PrivacyPolicy, "/pages/legal", "Privacy", false},
		{"return", m.ReturnPolicy, "/pages/returns", "", true},
		{"refund", m.ReturnPolicy, "/policies/refund-policy", "", true},
		{"faq", m.FAQ, "/pages/FAQs", "", true},
		{"faq text only", m.FAQ, "/pages/help", "FAQ", false},
		{"contact href", m.Contact, "/pages/contact", "", true},
		{"contact text", m.Contact, "/pages/reach-us", "Contact Us", true},
		{"about text", m.About, "/pages/story", "About", true},
		{"order tracking href", m.OrderTracking, "/apps/order-tracker", "", true},
		{"order tracking text", m.OrderTracking, "/pages/x", "Order Tracking", true},
		{"track my order", m.OrderTracking, "/pages/x", "Track my order", true},
		{"order only", m.OrderTracking, "/pages/order", "Orders", false},
		{"split across href and text", m.OrderTracking, "/pages/order", "Track", false},
		{"blog", m.Blogs, "/blogs/news", "", true},
		{"no blog", m.Blogs, "/pages/news", "News", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher(tt.href, tt.text); got != tt.want {
				t.Errorf("matcher(%q, %q) = %v, want %v", tt.href, tt.text, got, tt.want)
			}
		})
	}
}

func TestSocialMatchers(t *testing.T) {
	m := DefaultMatchers()
	if len(m.Social) != len(types.Platforms) {
		t.Fatalf("expected %d social matchers, got %d", len(types.Platforms), len(m.Social))
	}
	for _, p := range types.Platforms {
		href := "https://www." + p + ".com/shop"
		if !m.Social[p](href, "") {
			t.Errorf("%s matcher should match %q", p, href)
		}
	}
	if m.Social[types.PlatformTikTok]("https://instagram.com/shop", "") {
		t.Error("tiktok matcher should not match instagram")
	}
}

func TestCustomMatchers(t *testing.T) {
	m := DefaultMatchers()
	m.FAQ = HrefOrTextContains("help")

	e := New(&siteFetcher{pages: map[string]string{
		base:                    page(`<a href="/pages/support">Help</a>`),
		base + "/pages/support": page(`<h2>Need help?</h2><p>Email us.</p>`),
	}}, m, testLogger)

	r := e.FAQs(t.Context(), base)
	if len(r.Value) != 1 || !strings.HasPrefix(r.Value[0].Answer, "Email") {
		t.Errorf("custom FAQ matcher not applied: %+v", r)
	}
}
