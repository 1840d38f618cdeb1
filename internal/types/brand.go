package types

import (
	"encoding/json"
	"time"
)

// Social platforms recognised by the social handle extractor.
const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformTikTok    = "tiktok"
)

// Platforms lists the recognised social platforms in a stable order.
var Platforms = []string{PlatformInstagram, PlatformFacebook, PlatformTikTok}

// Product is one entry of a store's products.json feed. The feed is
// semi-structured, so fields are kept as decoded.
type Product map[string]any

// HeroProduct is a product featured on the storefront home page.
type HeroProduct struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Policy holds the store's policy page URLs.
type Policy struct {
	PrivacyPolicy *string `json:"privacy_policy"`
	ReturnPolicy  *string `json:"return_policy"`
}

// FAQ is a single question/answer pair from the store's FAQ page.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Contact holds contact details scraped from the store's contact page.
type Contact struct {
	Emails     []string `json:"emails"`
	Phones     []string `json:"phones"`
	Address    *string  `json:"address"`
	ReturnInfo *string  `json:"return_info"`
	OtherInfo  *string  `json:"other_info"`
}

// Links holds the important navigational links of a store.
type Links struct {
	OrderTracking *string `json:"order_tracking"`
	ContactUs     *string `json:"contact_us"`
	Blogs         *string `json:"blogs"`
}

// BrandContext is the aggregate brand intelligence for one store.
// Treat a BrandContext as immutable once assembled; use Clone to derive
// an independent copy.
type BrandContext struct {
	BrandName      *string           `json:"brand_name"`
	ProductCatalog []Product         `json:"product_catalog"`
	HeroProducts   []HeroProduct     `json:"hero_products"`
	Policies       Policy            `json:"policies"`
	FAQs           []FAQ             `json:"faqs"`
	SocialHandles  map[string]string `json:"social_handles"`
	Contact        Contact           `json:"contact"`
	About          *string           `json:"about"`
	Links          Links             `json:"links"`
}

// NewBrandContext returns a fully shaped, empty BrandContext.
func NewBrandContext() *BrandContext {
	bc := &BrandContext{}
	bc.Normalize()
	return bc
}

// Normalize replaces nil collections with empty ones so the JSON form
// never carries null for a list or mapping.
func (bc *BrandContext) Normalize() {
	if bc.ProductCatalog == nil {
		bc.ProductCatalog = []Product{}
	}
	if bc.HeroProducts == nil {
		bc.HeroProducts = []HeroProduct{}
	}
	if bc.FAQs == nil {
		bc.FAQs = []FAQ{}
	}
	if bc.SocialHandles == nil {
		bc.SocialHandles = map[string]string{}
	}
	if bc.Contact.Emails == nil {
		bc.Contact.Emails = []string{}
	}
	if bc.Contact.Phones == nil {
		bc.Contact.Phones = []string{}
	}
}

// Clone returns a deep copy of the context. Product values are copied
// through their JSON form, which is also the form they arrive in.
func (bc *BrandContext) Clone() (*BrandContext, error) {
	data, err := json.Marshal(bc)
	if err != nil {
		return nil, err
	}
	var out BrandContext
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// StoreRecord is the persisted form of a BrandContext.
type StoreRecord struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Context   *BrandContext `json:"context"`
	CreatedAt time.Time     `json:"created_at"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
