package extract

import (
	"strings"

	"github.com/scrapehub/scrapehub/internal/scrape"
)

// registry maps a marketplace country code to its MarketplaceExtractor.
// Countries absent from this table have no extractor registered
// (spec.md §4.1, HTTP 501).
var registry = map[string]MarketplaceExtractor{
	"US": Base{selectors: DefaultSelectors},
	"CA": Base{selectors: DefaultSelectors},
	"UK": Base{selectors: DefaultSelectors},
	"DE": germanyExtractor{Base: NewBase(DefaultSelectors)},
	"FR": Base{selectors: DefaultSelectors},
	"IT": Base{selectors: DefaultSelectors},
	"ES": Base{selectors: DefaultSelectors},
	"NL": Base{selectors: DefaultSelectors},
	"IN": indiaExtractor{Base: NewBase(DefaultSelectors)},
	"JP": Base{selectors: DefaultSelectors},
	"AU": Base{selectors: DefaultSelectors},
	"SG": Base{selectors: DefaultSelectors},
	"AE": Base{selectors: DefaultSelectors},
	"MX": Base{selectors: DefaultSelectors},
	"BR": brazilExtractor{Base: NewBase(DefaultSelectors)},
}

// ForCountry looks up the extractor registered for a country code.
func ForCountry(countryCode string) (MarketplaceExtractor, bool) {
	ext, ok := registry[countryCode]
	return ext, ok
}

// germanyExtractor overrides stock-status text recognition: the Amazon.de
// storefront renders unavailable listings as "Derzeit nicht verfügbar"
// rather than the English-language marker base.IsOutOfStock looks for.
type germanyExtractor struct{ Base }

func (germanyExtractor) IsOutOfStock(availabilityText string) bool {
	lower := strings.ToLower(availabilityText)
	markers := []string{"derzeit nicht verfügbar", "zur zeit nicht auf lager", "out of stock", "unavailable"}
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// indiaExtractor overrides seller classification: Amazon.in's first-party
// storefront entity is "Appario Retail" / "Cloudtail India" rather than a
// literal "Amazon" seller name.
type indiaExtractor struct{ Base }

func (indiaExtractor) ClassifySeller(sellerText string) scrape.SellerType {
	lower := strings.ToLower(strings.TrimSpace(sellerText))
	switch {
	case strings.Contains(lower, "amazon"), strings.Contains(lower, "appario retail"), strings.Contains(lower, "cloudtail"):
		return scrape.SellerMarketplaceFirstParty
	case lower != "":
		return scrape.SellerThirdParty
	default:
		return ""
	}
}

// brazilExtractor overrides price parsing: Amazon.com.br renders currency
// with a non-breaking space before "R$" that the shared digit/separator
// stripper in ParsePrice already tolerates, but original_source's
// brazil_scraper.py additionally strips a trailing "à vista" (cash price)
// qualifier before parsing.
type brazilExtractor struct{ Base }

func (brazilExtractor) ParsePrice(raw string) (float64, bool) {
	trimmed := raw
	if idx := strings.Index(strings.ToLower(trimmed), "à vista"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return ParsePrice(trimmed)
}
