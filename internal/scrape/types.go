// Package scrape holds the data model shared between the retry/render loop
// and the per-marketplace extractors (spec.md §3, §4.3, §4.7).
package scrape

import "encoding/json"

// Seller describes the merchant fulfilling a listing (spec.md §3).
type Seller struct {
	Name                   string `json:"name"`
	FulfilledByMarketplace bool   `json:"fulfilled_by_marketplace"`
}

// StockStatus enumerates the two recognized availability states
// (spec.md §3).
type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	OutOfStock StockStatus = "out_of_stock"
)

// SellerType enumerates the recognized merchant classifications
// (spec.md §4.7 "Seller type").
type SellerType string

const (
	SellerMarketplaceFirstParty SellerType = "marketplace_first_party"
	SellerThirdParty            SellerType = "third_party"
)

// Variation is one ordered product option (size, color, etc).
type Variation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductRecord is the normalized structured product emitted by a
// successful scrape (spec.md §3 ProductRecord).
type ProductRecord struct {
	ProductID        string
	Merchant         string
	CountryCode      string
	Title            string
	Brand            string
	Category         string
	Subcategory      string
	CurrentPrice     float64
	HasCurrentPrice  bool
	OriginalPrice    float64
	HasOriginalPrice bool
	Currency         string
	CurrencyCode     string
	StockStatus      StockStatus
	PrimaryImageURL  string
	ImageURLs        []string
	Rating           float64
	HasRating        bool
	ReviewCount      int
	BulletPoints     []string
	Variations       []Variation
	DeliveryETA      string
	Seller           *Seller
	OffersCount      *int
	BuyBoxWinner     *bool
	SellerType       SellerType
	Description      string
	Specifications   []Specification

	Cached bool
}

// productRecordWire is the wire shape for ProductRecord (spec.md §8
// scenario 1 `data:{asin:"B0F83HTPM2", …}`), grounded on
// `_examples/original_source/api_server.py`'s result dict. Optional fields
// that the DATA MODEL marks `|∅` are pointers so a missing value is
// omitted rather than serialized as a zero value.
type productRecordWire struct {
	ASIN            string          `json:"asin"`
	Merchant        string          `json:"merchant"`
	Title           string          `json:"title"`
	Brand           string          `json:"brand,omitempty"`
	Category        string          `json:"category,omitempty"`
	Subcategory     string          `json:"subcategory,omitempty"`
	CurrentPrice    *float64        `json:"current_price,omitempty"`
	OriginalPrice   *float64        `json:"original_price,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	CurrencyCode    string          `json:"currency_code,omitempty"`
	StockStatus     StockStatus     `json:"stock_status,omitempty"`
	PrimaryImageURL string          `json:"primary_image_url,omitempty"`
	ImageURLs       []string        `json:"image_urls,omitempty"`
	Rating          *float64        `json:"rating,omitempty"`
	ReviewCount     int             `json:"review_count"`
	BulletPoints    []string        `json:"bullet_points,omitempty"`
	Variations      []Variation     `json:"variations,omitempty"`
	DeliveryETA     string          `json:"delivery_eta,omitempty"`
	Seller          *Seller         `json:"seller,omitempty"`
	OffersCount     *int            `json:"offers_count,omitempty"`
	BuyBoxWinner    *bool           `json:"buy_box_winner,omitempty"`
	SellerType      SellerType      `json:"seller_type,omitempty"`
	Description     string          `json:"description,omitempty"`
	Specifications  []Specification `json:"specifications,omitempty"`
}

// MarshalJSON emits the wire shape, using the Has* flags to decide whether
// an optional numeric field is present at all.
func (r ProductRecord) MarshalJSON() ([]byte, error) {
	wire := productRecordWire{
		ASIN:            r.ProductID,
		Merchant:        r.Merchant,
		Title:           r.Title,
		Brand:           r.Brand,
		Category:        r.Category,
		Subcategory:     r.Subcategory,
		Currency:        r.Currency,
		CurrencyCode:    r.CurrencyCode,
		StockStatus:     r.StockStatus,
		PrimaryImageURL: r.PrimaryImageURL,
		ImageURLs:       r.ImageURLs,
		ReviewCount:     r.ReviewCount,
		BulletPoints:    r.BulletPoints,
		Variations:      r.Variations,
		DeliveryETA:     r.DeliveryETA,
		Seller:          r.Seller,
		OffersCount:     r.OffersCount,
		BuyBoxWinner:    r.BuyBoxWinner,
		SellerType:      r.SellerType,
		Description:     r.Description,
		Specifications:  r.Specifications,
	}
	if r.HasCurrentPrice {
		wire.CurrentPrice = &r.CurrentPrice
	}
	if r.HasOriginalPrice {
		wire.OriginalPrice = &r.OriginalPrice
	}
	if r.HasRating {
		wire.Rating = &r.Rating
	}
	return json.Marshal(wire)
}

// Specification is one ordered key/value entry in the product's spec table.
type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FailureKind enumerates the orthogonal scrape failure taxonomy
// (spec.md §3 ScrapeFailure, §7).
type FailureKind string

const (
	FailureInvalidURL    FailureKind = "invalid_url"
	FailureCaptcha       FailureKind = "captcha"
	FailureTimeout       FailureKind = "timeout"
	FailureRenderError   FailureKind = "render_error"
	FailureUpstreamError FailureKind = "upstream_error"
	FailureBreakerOpen   FailureKind = "breaker_open"
)

// Failure is a typed, non-cached scrape outcome (spec.md §3 ScrapeFailure).
// Country and CountryCode are filled in by the engine once routing has
// identified a marketplace; they stay empty for failures that occur before
// routing (spec.md §7 "scrape failures add country, country_code when
// known").
type Failure struct {
	Kind        FailureKind
	Message     string
	Country     string
	CountryCode string
}

func (f *Failure) Error() string { return f.Message }

// NewFailure constructs a *Failure, usable as a Go error.
func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Request is one inbound scrape request (spec.md §3 ScrapeRequest).
type Request struct {
	URL              string
	HeadlessOverride *bool
	ProxyOverride    string
	APIKey           string
	ClientIP         string
}
