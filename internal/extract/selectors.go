package extract

// SelectorSet names the CSS selectors one marketplace extractor reads from
// rendered markup. The selector values are implementation detail
// (spec.md §4.7); only the output contract is normative.
type SelectorSet struct {
	Title            string
	Brand            string
	CurrentPrice     []string
	OriginalPrice    []string
	Availability     string
	Images           []string
	Breadcrumbs      string
	Bullets          string
	Rating           string
	ReviewCount      string
	Description      []string
	SpecificationRow string
	SpecKey          string
	SpecValue        string
	SellerName       string
	DeliveryETA      string
	OffersCount      string
	BuyBoxWinnerHint string
}

// DefaultSelectors targets the common Amazon-family storefront DOM shared
// by most regional marketplaces.
var DefaultSelectors = SelectorSet{
	Title:            "#productTitle",
	Brand:            "#bylineInfo, a#brand, .po-brand .po-break-word",
	CurrentPrice:     []string{".a-price.priceToPay .a-offscreen", "#corePrice_feature_div .a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice"},
	OriginalPrice:    []string{".basisPrice .a-price.a-text-price .a-offscreen", "#priceblock_saleprice ~ .a-text-strike"},
	Availability:     "#availability span, #availability",
	Images:           []string{"#landingImage", "#imgTagWrapperId img", "#altImages img"},
	Breadcrumbs:      "#wayfinding-breadcrumbs_feature_div a, #wayfinding-breadcrumbs_container a",
	Bullets:          "#feature-bullets li span.a-list-item",
	Rating:           "#acrPopover, span[data-asin] i.a-icon-star span.a-icon-alt",
	ReviewCount:      "#acrCustomerReviewText",
	Description:      []string{"#productDescription", "#aplus"},
	SpecificationRow: "#productDetails_techSpec_section_1 tr, table.prodDetTable tr",
	SpecKey:          "th",
	SpecValue:        "td",
	SellerName:       "#sellerProfileTriggerId, #merchant-info a",
	DeliveryETA:      "#deliveryBlockMessage, #mir-layout-DELIVERY_BLOCK",
	OffersCount:      "#olp-upd-new, #olp_feature_div a",
	BuyBoxWinnerHint: "#buybox",
}
