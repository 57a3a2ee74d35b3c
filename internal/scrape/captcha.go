package scrape

import "strings"

// captchaMarkers are scanned for case-insensitively in rendered markup
// (spec.md §4.3 step 4 "CAPTCHA detection").
var captchaMarkers = []string{
	"enter the characters you see",
	"type the characters",
	"sorry, we just need to make sure",
	"validatecaptcha",
	"<title>robot check</title>",
}

// DetectCaptcha reports whether markup carries a bot-defense challenge.
func DetectCaptcha(markup string) bool {
	lower := strings.ToLower(markup)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
