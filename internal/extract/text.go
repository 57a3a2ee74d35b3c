package extract

import (
	"strconv"
	"strings"

	"github.com/scrapehub/scrapehub/internal/scrape"
)

// CleanText collapses runs of whitespace to a single space and trims the
// result (spec.md §4.7 "Text cleaning"). Returns "" for empty input.
func CleanText(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}

// TruncateRunes truncates s to at most max runes.
func TruncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// TruncateStrings truncates a slice to at most max items.
func TruncateStrings(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}

// ParsePrice extracts a finite positive real from formatted price text,
// disambiguating thousands vs decimal separators by position and by the
// length of the fractional group (spec.md §4.7 "Price parsing"), grounded
// on _examples/original_source/scrapers/base_scraper.py's
// _extract_price_value.
func ParsePrice(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	price := b.String()
	if price == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(price, ",")
	lastDot := strings.LastIndex(price, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma < lastDot {
			price = strings.ReplaceAll(price, ",", "")
		} else {
			price = strings.ReplaceAll(price, ".", "")
			price = strings.Replace(price, ",", ".", 1)
		}
	case lastComma >= 0:
		fractional := price[lastComma+1:]
		if strings.Count(price, ",") == 1 && len(fractional) <= 2 {
			price = strings.Replace(price, ",", ".", 1)
		} else {
			price = strings.ReplaceAll(price, ",", "")
		}
	}

	value, err := strconv.ParseFloat(price, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// backToResultsLiteral is excluded from breadcrumb resolution
// (spec.md §4.7 "Breadcrumb policy").
const backToResultsLiteral = "back to results"

// DefaultCategory is used when breadcrumbs cannot be resolved.
const DefaultCategory = "General"

// ResolveBreadcrumbs applies the category/subcategory policy: category is
// the first non-empty breadcrumb excluding the literal "back to results";
// subcategory is the last such breadcrumb, collapsing to the
// second-to-last if it duplicates it (spec.md §4.7 "Breadcrumb policy").
func ResolveBreadcrumbs(raw []string) (category, subcategory string) {
	var trail []string
	for _, item := range raw {
		cleaned := CleanText(item)
		if cleaned == "" || strings.EqualFold(cleaned, backToResultsLiteral) {
			continue
		}
		trail = append(trail, cleaned)
	}
	if len(trail) == 0 {
		return DefaultCategory, DefaultCategory
	}
	category = trail[0]
	subcategory = trail[len(trail)-1]
	if len(trail) >= 2 && strings.EqualFold(subcategory, trail[len(trail)-2]) {
		subcategory = trail[len(trail)-2]
	}
	return category, subcategory
}

// IsOutOfStock reports whether availability text indicates the listing is
// unavailable (spec.md §4.7 "Stock").
func IsOutOfStock(availabilityText string) bool {
	lower := strings.ToLower(availabilityText)
	return strings.Contains(lower, "out of stock") || strings.Contains(lower, "unavailable")
}

// ClassifySeller maps seller-name text to the seller-type taxonomy
// (spec.md §4.7 "Seller type").
func ClassifySeller(sellerText string) scrape.SellerType {
	lower := strings.ToLower(strings.TrimSpace(sellerText))
	switch {
	case strings.Contains(lower, "amazon"):
		return scrape.SellerMarketplaceFirstParty
	case lower != "":
		return scrape.SellerThirdParty
	default:
		return ""
	}
}

// DedupeStrings removes duplicate entries while preserving order.
func DedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
