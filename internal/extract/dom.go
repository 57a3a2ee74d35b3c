package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scrapehub/scrapehub/internal/scrape"
)

// stringReader avoids pulling in strings.NewReader at every call site.
func stringReader(s string) *strings.Reader { return strings.NewReader(s) }

// firstText returns the cleaned text of the first selector (in order) that
// matches at least one node, trying each comma-joined or separately passed
// selector in turn.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, group := range selectors {
		if group == "" {
			continue
		}
		sel := doc.Find(group).First()
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text
		}
	}
	return ""
}

// collectText returns the cleaned text of every node matching selector.
func collectText(doc *goquery.Document, selector string) []string {
	if selector == "" {
		return nil
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// collectAttrs returns the named attribute of every node matching any of
// selectors, skipping nodes where the attribute is absent or empty.
func collectAttrs(doc *goquery.Document, attr string, selectors ...string) []string {
	var out []string
	for _, selector := range selectors {
		if selector == "" {
			continue
		}
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if val, ok := s.Attr(attr); ok && val != "" {
				out = append(out, val)
			}
		})
	}
	return out
}

// firstParsedPrice tries each selector in order, parsing its text with the
// extractor's ParsePrice hook, and returns the first one that parses.
func firstParsedPrice(doc *goquery.Document, selectors []string, ext MarketplaceExtractor) (float64, bool) {
	for _, sel := range selectors {
		text := firstText(doc, sel)
		if text == "" {
			continue
		}
		if value, ok := ext.ParsePrice(text); ok {
			return value, true
		}
	}
	return 0, false
}

var ratingPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*out of\s*5`)

// parseRating extracts a 0-5 star rating from text such as
// "4.3 out of 5 stars".
func parseRating(doc *goquery.Document, selector string) (float64, bool) {
	text := firstText(doc, selector)
	if text == "" {
		return 0, false
	}
	match := ratingPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

var digitsPattern = regexp.MustCompile(`[\d,]+`)

// parseReviewCount extracts the leading integer run from text such as
// "1,204 ratings".
func parseReviewCount(doc *goquery.Document, selector string) int {
	text := firstText(doc, selector)
	if text == "" {
		return 0
	}
	match := digitsPattern.FindString(text)
	if match == "" {
		return 0
	}
	count, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0
	}
	return count
}

// parseOffersCount extracts the leading integer run naming a count of
// competing offers, e.g. "12 new offers".
func parseOffersCount(doc *goquery.Document, selector string) *int {
	if selector == "" {
		return nil
	}
	text := firstText(doc, selector)
	if text == "" {
		return nil
	}
	match := digitsPattern.FindString(text)
	if match == "" {
		return nil
	}
	count, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return nil
	}
	return &count
}

// extractSpecs walks the specification table rows, pairing the configured
// key/value cells.
func extractSpecs(doc *goquery.Document, selectors SelectorSet) []scrape.Specification {
	if selectors.SpecificationRow == "" {
		return nil
	}
	var out []scrape.Specification
	doc.Find(selectors.SpecificationRow).Each(func(_ int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find(selectors.SpecKey).First().Text())
		value := strings.TrimSpace(row.Find(selectors.SpecValue).First().Text())
		if key == "" || value == "" {
			return
		}
		out = append(out, scrape.Specification{Key: CleanText(key), Value: CleanText(value)})
	})
	return out
}

// extractVariations always returns nil: no variation selector is read, and
// MarketplaceExtractor has no hook through which a country extractor could
// supply variations, so every record's Variations is empty.
func extractVariations(doc *goquery.Document) []scrape.Variation {
	return nil
}
