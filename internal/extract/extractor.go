// Package extract implements the per-marketplace extractor contract
// (spec.md §4.7): a pure function from rendered markup to a
// scrape.ProductRecord. Recast per spec.md §9 as composition rather than
// inheritance — a MarketplaceExtractor capability with a shared default
// implementation and per-country overrides selected by table lookup.
package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/scrapehub/scrapehub/internal/marketplace"
	"github.com/scrapehub/scrapehub/internal/scrape"
)

const (
	maxTitleLen       = 500
	maxBrandLen       = 100
	maxCategoryLen    = 100
	maxDescriptionLen = 2000
	maxListItems      = 10
)

// MarketplaceExtractor is the per-country capability (spec.md §9). The
// shared default implementation lives in Base; country variants embed Base
// and override only the methods that differ.
type MarketplaceExtractor interface {
	Selectors() SelectorSet
	ParsePrice(raw string) (float64, bool)
	IsOutOfStock(availabilityText string) bool
	ClassifySeller(sellerText string) scrape.SellerType
}

// Base is the shared default implementation every country extractor
// embeds.
type Base struct {
	selectors SelectorSet
}

// NewBase constructs a Base using the given selectors, or DefaultSelectors
// if the title selector (required on every marketplace) is unset.
func NewBase(selectors SelectorSet) Base {
	if selectors.Title == "" {
		selectors = DefaultSelectors
	}
	return Base{selectors: selectors}
}

func (b Base) Selectors() SelectorSet                            { return b.selectors }
func (b Base) ParsePrice(raw string) (float64, bool)              { return ParsePrice(raw) }
func (b Base) IsOutOfStock(availabilityText string) bool          { return IsOutOfStock(availabilityText) }
func (b Base) ClassifySeller(sellerText string) scrape.SellerType { return ClassifySeller(sellerText) }

// ExtractError is an extraction-time failure (spec.md §4.7).
type ExtractError struct{ Message string }

func (e *ExtractError) Error() string { return e.Message }

// Extract parses markup into a ProductRecord using the given extractor's
// selectors and overridable steps, applying the shared cleaning,
// truncation, and breadcrumb policy (spec.md §4.7).
func Extract(markup string, productURL string, desc marketplace.Descriptor, ext MarketplaceExtractor) (*scrape.ProductRecord, error) {
	productID, ok := marketplace.ExtractProductID(productURL)
	if !ok {
		return nil, &ExtractError{Message: fmt.Sprintf("Invalid %s URL - product identifier not found", desc.Name)}
	}

	doc, err := goquery.NewDocumentFromReader(stringReader(markup))
	if err != nil {
		return nil, &ExtractError{Message: "could not parse rendered markup"}
	}

	selectors := ext.Selectors()

	record := &scrape.ProductRecord{
		ProductID:    productID,
		Merchant:     desc.Name,
		CountryCode:  desc.Code,
		Currency:     desc.Currency,
		CurrencyCode: desc.CurrencyCode,
	}

	record.Title = TruncateRunes(CleanText(firstText(doc, selectors.Title)), maxTitleLen)
	record.Brand = TruncateRunes(CleanText(firstText(doc, selectors.Brand)), maxBrandLen)

	if price, found := firstParsedPrice(doc, selectors.CurrentPrice, ext); found {
		record.CurrentPrice, record.HasCurrentPrice = price, true
	}
	if price, found := firstParsedPrice(doc, selectors.OriginalPrice, ext); found {
		record.OriginalPrice, record.HasOriginalPrice = price, true
	}

	availability := CleanText(firstText(doc, selectors.Availability))
	if ext.IsOutOfStock(availability) {
		record.StockStatus = scrape.OutOfStock
	} else {
		record.StockStatus = scrape.InStock
	}

	breadcrumbs := collectText(doc, selectors.Breadcrumbs)
	record.Category, record.Subcategory = ResolveBreadcrumbs(breadcrumbs)
	record.Category = TruncateRunes(record.Category, maxCategoryLen)
	record.Subcategory = TruncateRunes(record.Subcategory, maxCategoryLen)

	images := DedupeStrings(collectAttrs(doc, "src", selectors.Images...))
	record.ImageURLs = TruncateStrings(images, maxListItems)
	if len(record.ImageURLs) > 0 {
		record.PrimaryImageURL = record.ImageURLs[0]
	}

	bullets := collectText(doc, selectors.Bullets)
	var cleanedBullets []string
	for _, b := range bullets {
		if cleaned := CleanText(b); cleaned != "" {
			cleanedBullets = append(cleanedBullets, cleaned)
		}
	}
	record.BulletPoints = TruncateStrings(cleanedBullets, maxListItems)

	if rating, found := parseRating(doc, selectors.Rating); found {
		record.Rating, record.HasRating = rating, true
	}
	record.ReviewCount = parseReviewCount(doc, selectors.ReviewCount)

	record.Description = TruncateRunes(CleanText(firstText(doc, selectors.Description...)), maxDescriptionLen)

	record.Specifications = TruncateSpecs(extractSpecs(doc, selectors), maxListItems*2)
	record.Variations = TruncateVariations(extractVariations(doc), maxListItems)

	sellerText := CleanText(firstText(doc, selectors.SellerName))
	if sellerText != "" {
		record.Seller = &scrape.Seller{Name: sellerText, FulfilledByMarketplace: ext.ClassifySeller(sellerText) == scrape.SellerMarketplaceFirstParty}
	}
	record.SellerType = ext.ClassifySeller(sellerText)

	record.DeliveryETA = CleanText(firstText(doc, selectors.DeliveryETA))

	if offers := parseOffersCount(doc, selectors.OffersCount); offers != nil {
		record.OffersCount = offers
	}
	if doc.Find(selectors.BuyBoxWinnerHint).Length() > 0 {
		winner := true
		record.BuyBoxWinner = &winner
	}

	return record, nil
}

// TruncateSpecs truncates an ordered spec slice to at most max entries.
func TruncateSpecs(items []scrape.Specification, max int) []scrape.Specification {
	if len(items) <= max {
		return items
	}
	return items[:max]
}

// TruncateVariations truncates an ordered variation slice to at most max entries.
func TruncateVariations(items []scrape.Variation, max int) []scrape.Variation {
	if len(items) <= max {
		return items
	}
	return items[:max]
}
