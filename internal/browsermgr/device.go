package browsermgr

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp/device"
)

// deviceFor adapts a Profile into the device.Info chromedp.Emulate expects,
// carrying the jittered viewport straight through as the emulated device
// metrics (spec.md §4.2).
func deviceFor(p Profile) device.Info {
	return device.Info{
		Name:      p.Name,
		UserAgent: p.UserAgent,
		Width:     int64(p.Width),
		Height:    int64(p.Height),
		Scale:     1,
	}
}

// evaluateOnNewDocument registers script to run before every page load in
// this context, used to seed the anti-detection init script
// (spec.md §4.2).
func evaluateOnNewDocument(ctx context.Context, script string) (string, error) {
	id, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
	return string(id), err
}
