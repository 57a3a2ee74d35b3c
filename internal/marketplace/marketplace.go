// Package marketplace holds the regional marketplace registry, URL
// validation, country routing, and product identifier extraction shared
// between the ingress validator and the per-country extractors
// (spec.md §2 steps 3-4, §3 MarketplaceDescriptor).
package marketplace

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Descriptor is the immutable, process-wide record for one regional
// marketplace (spec.md §3 MarketplaceDescriptor).
type Descriptor struct {
	Code         string
	Name         string
	Host         string
	Currency     string
	CurrencyCode string
}

// Registry is the fixed set of fifteen regional marketplaces recognized at
// startup, grounded on the original Python implementation's
// AMAZON_COUNTRIES table (_examples/original_source/api_config.py).
var Registry = []Descriptor{
	{Code: "US", Name: "United States", Host: "amazon.com", Currency: "$", CurrencyCode: "USD"},
	{Code: "CA", Name: "Canada", Host: "amazon.ca", Currency: "C$", CurrencyCode: "CAD"},
	{Code: "MX", Name: "Mexico", Host: "amazon.com.mx", Currency: "MX$", CurrencyCode: "MXN"},
	{Code: "BR", Name: "Brazil", Host: "amazon.com.br", Currency: "R$", CurrencyCode: "BRL"},
	{Code: "UK", Name: "United Kingdom", Host: "amazon.co.uk", Currency: "£", CurrencyCode: "GBP"},
	{Code: "DE", Name: "Germany", Host: "amazon.de", Currency: "€", CurrencyCode: "EUR"},
	{Code: "FR", Name: "France", Host: "amazon.fr", Currency: "€", CurrencyCode: "EUR"},
	{Code: "IT", Name: "Italy", Host: "amazon.it", Currency: "€", CurrencyCode: "EUR"},
	{Code: "ES", Name: "Spain", Host: "amazon.es", Currency: "€", CurrencyCode: "EUR"},
	{Code: "NL", Name: "Netherlands", Host: "amazon.nl", Currency: "€", CurrencyCode: "EUR"},
	{Code: "AE", Name: "UAE", Host: "amazon.ae", Currency: "AED", CurrencyCode: "AED"},
	{Code: "IN", Name: "India", Host: "amazon.in", Currency: "₹", CurrencyCode: "INR"},
	{Code: "JP", Name: "Japan", Host: "amazon.co.jp", Currency: "¥", CurrencyCode: "JPY"},
	{Code: "AU", Name: "Australia", Host: "amazon.com.au", Currency: "A$", CurrencyCode: "AUD"},
	{Code: "SG", Name: "Singapore", Host: "amazon.sg", Currency: "S$", CurrencyCode: "SGD"},
}

// ByCode looks up a descriptor by its ISO-2 country code.
func ByCode(code string) (Descriptor, bool) {
	for _, d := range Registry {
		if d.Code == code {
			return d, true
		}
	}
	return Descriptor{}, false
}

// AllowedHosts returns the dotted-suffix-matchable host for every marketplace.
func AllowedHosts() []string {
	hosts := make([]string, len(Registry))
	for i, d := range Registry {
		hosts[i] = d.Host
	}
	return hosts
}

// RouteByHost maps a normalized host to its marketplace descriptor. A host
// matches if it equals a marketplace's host exactly or ends with "." followed
// by that marketplace's host (spec.md §8 invariant: "routing yields a country iff some marketplace's
// host equals `host` or is a dotted suffix of it").
func RouteByHost(host string) (Descriptor, bool) {
	host = NormalizeHost(host)
	for _, d := range Registry {
		if host == d.Host || strings.HasSuffix(host, "."+d.Host) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// NormalizeHost lower-cases a host and strips a leading "www." label.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// ValidationError describes why a candidate product URL was rejected
// (spec.md §7 "Client errors").
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// productIDPattern matches a bare ten-character alphanumeric code.
var productIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)

var pathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Za-z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Za-z0-9]{10})`),
	regexp.MustCompile(`/gp/aw/d/([A-Za-z0-9]{10})`),
}

// ExtractProductID recognizes the ten-character product identifier in any of
// the four supported URL shapes (spec.md §4.7, §8 "four supported URL
// shapes yield the same identifier"), grounded on
// _examples/original_source/scrapers/base_scraper.py's extract_asin.
func ExtractProductID(rawURL string) (string, bool) {
	for _, pattern := range pathPatterns {
		if m := pattern.FindStringSubmatch(rawURL); len(m) == 2 {
			return strings.ToUpper(m[1]), true
		}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if values := parsed.Query(); values.Has("ASIN") {
		candidate := values.Get("ASIN")
		if productIDPattern.MatchString(candidate) {
			return strings.ToUpper(candidate), true
		}
	}
	return "", false
}

// ValidateURL parses and validates a candidate product URL against the
// allow-list of marketplace hosts (spec.md §2 step 3), returning the
// normalized host on success.
func ValidateURL(rawURL string) (host string, err error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", &ValidationError{Message: "URL is required"}
	}
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return "", &ValidationError{Message: "URL could not be parsed"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &ValidationError{Message: "URL must start with http or https"}
	}
	normalizedHost := NormalizeHost(parsed.Host)
	if normalizedHost == "" {
		return "", &ValidationError{Message: "URL host is invalid"}
	}
	if _, ok := RouteByHost(normalizedHost); !ok {
		return "", &ValidationError{Message: fmt.Sprintf("URL must be a supported marketplace domain, got %s", normalizedHost)}
	}
	return normalizedHost, nil
}

// Fingerprint is the cache key: the pair (country_code, product_id)
// (spec.md §3, GLOSSARY).
type Fingerprint struct {
	CountryCode string
	ProductID   string
}

func (f Fingerprint) String() string {
	return f.CountryCode + ":" + f.ProductID
}
