package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/scrapehub/scrapehub/internal/browsermgr"
)

// Extractor is the narrow capability worker.Run needs from the extraction
// layer, kept here to avoid an import cycle with internal/extract.
type Extractor func(markup string, productURL string) (*ProductRecord, error)

// Renderer is the narrow capability worker.Run needs from the browser
// manager, satisfied by *browsermgr.Manager.
type Renderer interface {
	GetContext(ctx context.Context, headless bool, proxy string) (*browsermgr.Context, error)
}

// Params configures one Run invocation (spec.md §4.3).
type Params struct {
	URL           string
	Headless      bool
	Proxy         string
	NavTimeout    time.Duration
	MaxRetries    int
	Extract       Extractor
}

// backoff returns the pause before retry attempt n (1-based), capped at 10s
// (spec.md §4.3 "Backoff": min(2^(attempt-1), 10) seconds).
func backoff(attempt int) time.Duration {
	seconds := 1 << uint(attempt-1)
	if seconds > 10 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// Run drives the render/retry loop for one product URL: acquire a browser
// context, navigate, read the page title, read markup, short-circuit
// on CAPTCHA, extract, and release the context on every exit path
// (spec.md §4.3).
func Run(ctx context.Context, renderer Renderer, logger *zap.Logger, params Params) (*ProductRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	attempts := params.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		record, err := attemptOnce(ctx, renderer, logger, params)
		if err == nil {
			return record, nil
		}
		lastErr = err

		if failure, ok := err.(*Failure); ok && failure.Kind == FailureCaptcha {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt < attempts {
			logger.Warn("scrape attempt failed, retrying",
				zap.String("url", params.URL), zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, NewFailure(FailureTimeout, "context canceled during backoff")
			}
		}
	}
	return nil, lastErr
}

func attemptOnce(ctx context.Context, renderer Renderer, logger *zap.Logger, params Params) (*ProductRecord, error) {
	browserCtx, err := renderer.GetContext(ctx, params.Headless, params.Proxy)
	if err != nil {
		return nil, NewFailure(FailureRenderError, err.Error())
	}
	defer browserCtx.Release()

	navCtx, cancel := context.WithTimeout(browserCtx.Ctx(), params.NavTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(params.URL)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return nil, NewFailure(FailureTimeout, fmt.Sprintf("navigation timed out after %s", params.NavTimeout))
		}
		return nil, NewFailure(FailureRenderError, err.Error())
	}

	// Best-effort single read of the document <title>, bounded to 5s; it does
	// not poll or wait for a product-title element to appear, and a slow or
	// absent title never fails the attempt (spec.md §4.3
	// "wait-for-title-then-continue").
	var title string
	waitCtx, waitCancel := context.WithTimeout(navCtx, 5*time.Second)
	_ = chromedp.Run(waitCtx, chromedp.Title(&title))
	waitCancel()

	var markup string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &markup)); err != nil {
		return nil, NewFailure(FailureRenderError, err.Error())
	}

	if DetectCaptcha(markup) {
		logger.Info("captcha detected, not retrying", zap.String("url", params.URL))
		return nil, NewFailure(FailureCaptcha, "bot-defense challenge detected")
	}

	record, err := params.Extract(markup, params.URL)
	if err != nil {
		return nil, NewFailure(FailureUpstreamError, err.Error())
	}
	return record, nil
}
