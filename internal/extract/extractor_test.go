package extract

import (
	"testing"

	"github.com/scrapehub/scrapehub/internal/marketplace"
	"github.com/scrapehub/scrapehub/internal/scrape"
)

const sampleMarkup = `
<html><body>
<span id="productTitle">  Wireless Mouse, Ergonomic  </span>
<div id="bylineInfo">Visit the Acme Store</div>
<span class="a-price priceToPay"><span class="a-offscreen">$19.99</span></span>
<div id="availability"><span>In Stock.</span></div>
<div id="wayfinding-breadcrumbs_feature_div">
  <a>Electronics</a>
  <a>Computer Accessories</a>
</div>
<img id="landingImage" src="https://img.example.com/1.jpg">
<ul>
  <li class="a-list-item" id="feature-bullets"><span class="a-list-item">Long battery life</span></li>
</ul>
<span id="acrPopover">4.5 out of 5 stars</span>
<span id="acrCustomerReviewText">1,204 ratings</span>
<div id="merchant-info">Sold by <a>Amazon.com</a></div>
</body></html>
`

func TestExtractHappyPath(t *testing.T) {
	desc, _ := marketplace.ByCode("US")
	record, err := Extract(sampleMarkup, "https://amazon.com/dp/B0ABCDEFGH", desc, Base{selectors: DefaultSelectors})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if record.ProductID != "B0ABCDEFGH" {
		t.Errorf("ProductID = %q, want B0ABCDEFGH", record.ProductID)
	}
	if record.Title != "Wireless Mouse, Ergonomic" {
		t.Errorf("Title = %q", record.Title)
	}
	if !record.HasCurrentPrice || record.CurrentPrice != 19.99 {
		t.Errorf("CurrentPrice = %v (has=%v), want 19.99", record.CurrentPrice, record.HasCurrentPrice)
	}
	if record.Category != "Electronics" || record.Subcategory != "Computer Accessories" {
		t.Errorf("Category/Subcategory = %q/%q", record.Category, record.Subcategory)
	}
	if len(record.ImageURLs) != 1 || record.PrimaryImageURL != "https://img.example.com/1.jpg" {
		t.Errorf("ImageURLs = %v", record.ImageURLs)
	}
	if !record.HasRating || record.Rating != 4.5 {
		t.Errorf("Rating = %v (has=%v), want 4.5", record.Rating, record.HasRating)
	}
	if record.ReviewCount != 1204 {
		t.Errorf("ReviewCount = %d, want 1204", record.ReviewCount)
	}
	if record.Seller == nil || !record.Seller.FulfilledByMarketplace {
		t.Errorf("Seller = %+v, want first-party", record.Seller)
	}
}

func TestExtractRejectsURLWithoutProductID(t *testing.T) {
	desc, _ := marketplace.ByCode("US")
	_, err := Extract(sampleMarkup, "https://amazon.com/some/path", desc, Base{selectors: DefaultSelectors})
	if err == nil {
		t.Fatal("expected an error for a URL without a product identifier")
	}
}

func TestForCountryMissingReturnsFalse(t *testing.T) {
	if _, ok := ForCountry("ZZ"); ok {
		t.Fatal("ForCountry(\"ZZ\") should report no registered extractor")
	}
}

func TestGermanyExtractorOverridesOutOfStock(t *testing.T) {
	ext, ok := ForCountry("DE")
	if !ok {
		t.Fatal("expected Germany to have a registered extractor")
	}
	if !ext.IsOutOfStock("Derzeit nicht verfügbar.") {
		t.Error("expected the German unavailability phrase to be recognized")
	}
	if ext.IsOutOfStock("Auf Lager.") {
		t.Error("did not expect an in-stock phrase to be classified as out of stock")
	}
}

func TestBrazilExtractorStripsCashQualifier(t *testing.T) {
	ext, ok := ForCountry("BR")
	if !ok {
		t.Fatal("expected Brazil to have a registered extractor")
	}
	value, found := ext.ParsePrice("R$ 199,90 à vista no cartão")
	if !found {
		t.Fatal("expected the price to parse")
	}
	if value != 199.90 {
		t.Errorf("ParsePrice() = %v, want 199.90", value)
	}
}

func TestIndiaExtractorClassifiesLocalFirstPartySellers(t *testing.T) {
	ext, ok := ForCountry("IN")
	if !ok {
		t.Fatal("expected India to have a registered extractor")
	}
	if got := ext.ClassifySeller("Appario Retail Private Ltd"); got != scrape.SellerMarketplaceFirstParty {
		t.Errorf("ClassifySeller() = %q, want %q", got, scrape.SellerMarketplaceFirstParty)
	}
}
