package marketplace_test

import (
	"testing"

	"github.com/scrapehub/scrapehub/internal/marketplace"
)

func TestRouteByHostExactAndSuffix(t *testing.T) {
	tests := []struct {
		host    string
		wantOK  bool
		wantCode string
	}{
		{"amazon.com", true, "US"},
		{"www.amazon.com", true, "US"},
		{"smile.amazon.co.uk", true, "UK"},
		{"notamazon.com", false, ""},
		{"amazon.com.evil.com", false, ""},
	}
	for _, tt := range tests {
		desc, ok := marketplace.RouteByHost(tt.host)
		if ok != tt.wantOK {
			t.Errorf("RouteByHost(%q) ok = %v, want %v", tt.host, ok, tt.wantOK)
			continue
		}
		if ok && desc.Code != tt.wantCode {
			t.Errorf("RouteByHost(%q) code = %q, want %q", tt.host, desc.Code, tt.wantCode)
		}
	}
}

func TestExtractProductIDFourURLShapes(t *testing.T) {
	want := "B0ABCDEFGH"
	urls := []string{
		"https://amazon.com/Some-Title/dp/B0ABCDEFGH",
		"https://amazon.com/gp/product/B0ABCDEFGH",
		"https://amazon.com/gp/aw/d/B0ABCDEFGH",
		"https://amazon.com/gp/aw/d/b0abcdefgh?extra=1",
		"https://amazon.com/some/path?ASIN=B0ABCDEFGH",
	}
	for _, u := range urls {
		got, ok := marketplace.ExtractProductID(u)
		if !ok {
			t.Errorf("ExtractProductID(%q) ok = false, want true", u)
			continue
		}
		if got != want {
			t.Errorf("ExtractProductID(%q) = %q, want %q", u, got, want)
		}
	}
}

func TestExtractProductIDMissing(t *testing.T) {
	if _, ok := marketplace.ExtractProductID("https://amazon.com/some/random/path"); ok {
		t.Error("ExtractProductID() ok = true, want false for a URL with no product id")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid", "https://amazon.com/dp/B0ABCDEFGH", false},
		{"empty", "", true},
		{"bad scheme", "ftp://amazon.com/dp/B0ABCDEFGH", true},
		{"unsupported host", "https://ebay.com/item/123", true},
		{"unparsable", "http://[::1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := marketplace.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) err = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestFingerprintString(t *testing.T) {
	fp := marketplace.Fingerprint{CountryCode: "US", ProductID: "B0ABCDEFGH"}
	if got, want := fp.String(), "US:B0ABCDEFGH"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
