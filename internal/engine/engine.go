// Package engine wires the orchestration components — marketplace
// validation, cache, breaker, rate limiters, dispatcher, browser manager,
// extractor registry, and readiness prober — into the single value that
// answers one scrape request end to end (spec.md §2, §9 "Engine").
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrapehub/scrapehub/internal/breaker"
	"github.com/scrapehub/scrapehub/internal/browsermgr"
	"github.com/scrapehub/scrapehub/internal/cache"
	"github.com/scrapehub/scrapehub/internal/config"
	"github.com/scrapehub/scrapehub/internal/dispatcher"
	"github.com/scrapehub/scrapehub/internal/extract"
	"github.com/scrapehub/scrapehub/internal/marketplace"
	"github.com/scrapehub/scrapehub/internal/metrics"
	"github.com/scrapehub/scrapehub/internal/prober"
	"github.com/scrapehub/scrapehub/internal/ratelimit"
	"github.com/scrapehub/scrapehub/internal/scrape"
)

// Engine is the single process-wide orchestrator (spec.md §9).
type Engine struct {
	cfg    config.Config
	logger *zap.Logger

	cache       *cache.Cache
	breaker     *breaker.Breaker
	keyLimiter  *ratelimit.Limiter
	ipLimiter   *ratelimit.Limiter
	dispatcher  *dispatcher.Dispatcher
	browsers    *browsermgr.Manager
	metrics     *metrics.Registry
	prober      *prober.Prober
}

// New constructs an Engine from configuration. The readiness prober is
// started separately via RunProber so callers control its lifetime against the
// same context as HTTP serving.
func New(cfg config.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		cache:      cache.New(cfg.CacheTTL, cfg.CacheMaxItems),
		breaker:    breaker.New(breaker.DefaultFailureThreshold, breaker.DefaultCoolOff),
		keyLimiter: ratelimit.New(cfg.RateLimitPerMinuteKey, 0),
		ipLimiter:  ratelimit.New(cfg.RateLimitPerMinuteIP, 0),
		dispatcher: dispatcher.New(cfg.MaxConcurrency, logger),
		browsers:   browsermgr.New(logger),
		metrics:    metrics.New(),
	}

	var check prober.Check
	if cfg.ReadyCheckProductID != "" && cfg.ReadyCheckCountry != "" {
		check = e.readinessCheck
	}
	e.prober = prober.New(check, cfg.ReadyCheckInterval, logger)
	return e
}

// Metrics exposes the Prometheus registry for the /metrics handler.
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// ReadyStatus exposes the prober's latest verdict for /api/ready.
func (e *Engine) ReadyStatus() prober.Status { return e.prober.Status() }

// RunProber starts the background readiness loop; it returns once ctx is
// canceled.
func (e *Engine) RunProber(ctx context.Context) { e.prober.Run(ctx) }

// Shutdown drains the dispatcher and tears down the browser manager
// (spec.md's supplemented graceful-shutdown feature).
func (e *Engine) Shutdown() {
	e.dispatcher.Close()
	e.browsers.Close()
}

// AllowKey enforces the per-API-key rate limit.
func (e *Engine) AllowKey(apiKey string) bool { return e.keyLimiter.Allow(apiKey) }

// AllowIP enforces the per-client-IP rate limit.
func (e *Engine) AllowIP(ip string) bool { return e.ipLimiter.Allow(ip) }

// ValidAPIKeys reports the configured credential set.
func (e *Engine) ValidAPIKeys() map[string]struct{} { return e.cfg.ValidAPIKeys() }

// Config exposes the engine's effective configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Scrape runs the full pipeline for one request (spec.md §2 steps 3-9):
// validate, route, check the breaker and cache, submit to the dispatcher,
// and record outcome metrics.
func (e *Engine) Scrape(ctx context.Context, req scrape.Request) (*scrape.ProductRecord, error) {
	host, err := marketplace.ValidateURL(req.URL)
	if err != nil {
		e.metrics.ScrapeTotal.WithLabelValues("invalid_url", "").Inc()
		return nil, scrape.NewFailure(scrape.FailureInvalidURL, err.Error())
	}
	desc, _ := marketplace.RouteByHost(host)

	productID, ok := marketplace.ExtractProductID(req.URL)
	if !ok {
		e.metrics.ScrapeTotal.WithLabelValues("upstream_error", desc.Code).Inc()
		return nil, &scrape.Failure{
			Kind:        scrape.FailureUpstreamError,
			Message:     "Invalid Amazon URL - ASIN not found",
			Country:     desc.Name,
			CountryCode: desc.Code,
		}
	}

	if e.breaker.IsOpen(desc.Code) {
		e.metrics.ScrapeTotal.WithLabelValues("breaker_open", desc.Code).Inc()
		return nil, &scrape.Failure{
			Kind:        scrape.FailureBreakerOpen,
			Message:     "Circuit breaker open for this country",
			Country:     desc.Name,
			CountryCode: desc.Code,
		}
	}

	extractor, ok := extract.ForCountry(desc.Code)
	if !ok {
		return nil, &noExtractorError{country: desc.Code}
	}

	fingerprint := marketplace.Fingerprint{CountryCode: desc.Code, ProductID: productID}
	if cached, hit := e.cache.Get(fingerprint); hit {
		record := *cached.(*scrape.ProductRecord)
		record.Cached = true
		return &record, nil
	}

	start := time.Now()
	headless := e.cfg.HeadlessMode
	if req.HeadlessOverride != nil {
		headless = *req.HeadlessOverride
	}
	proxy := req.ProxyOverride
	if proxy == "" && len(e.cfg.ProxyURLs) > 0 {
		proxy = e.cfg.ProxyURLs[0]
	}

	navTimeout := e.cfg.ScrapeTimeout
	taskTimeout := navTimeout + 10*time.Second

	handle := e.dispatcher.Submit(func(taskCtx context.Context) (any, error) {
		return scrape.Run(taskCtx, e.browsers, e.logger, scrape.Params{
			URL:        req.URL,
			Headless:   headless,
			Proxy:      proxy,
			NavTimeout: navTimeout,
			MaxRetries: e.cfg.MaxRetries,
			Extract: func(markup, productURL string) (*scrape.ProductRecord, error) {
				return extract.Extract(markup, productURL, desc, extractor)
			},
		})
	})

	e.metrics.ScrapeQueueDepth.Set(float64(e.dispatcher.QueueDepth()))

	result, awaitErr := dispatcher.Await(handle, taskTimeout)
	duration := time.Since(start).Seconds()
	e.metrics.ScrapeDuration.WithLabelValues(desc.Code).Observe(duration)
	e.metrics.ScrapeQueueDepth.Set(float64(e.dispatcher.QueueDepth()))

	if awaitErr == dispatcher.ErrTimeout {
		e.breaker.RecordFailure(desc.Code)
		e.metrics.ScrapeTotal.WithLabelValues("timeout", desc.Code).Inc()
		return nil, &scrape.Failure{
			Kind:        scrape.FailureTimeout,
			Message:     "scrape did not complete before the dispatcher timeout",
			Country:     desc.Name,
			CountryCode: desc.Code,
		}
	}
	if awaitErr != nil {
		return nil, classifyFailure(awaitErr, desc, e)
	}

	record, ok := result.(*scrape.ProductRecord)
	if !ok {
		failure, _ := result.(error)
		return nil, classifyFailure(failure, desc, e)
	}

	e.breaker.RecordSuccess(desc.Code)
	e.cache.Set(fingerprint, record)
	e.metrics.CacheSize.Set(float64(e.cache.Size()))
	e.metrics.ScrapeTotal.WithLabelValues("success", desc.Code).Inc()
	return record, nil
}

func classifyFailure(err error, desc marketplace.Descriptor, e *Engine) error {
	failure, ok := err.(*scrape.Failure)
	if !ok {
		e.breaker.RecordFailure(desc.Code)
		e.metrics.ScrapeTotal.WithLabelValues("upstream_error", desc.Code).Inc()
		return &scrape.Failure{
			Kind:        scrape.FailureUpstreamError,
			Message:     "scrape failed",
			Country:     desc.Name,
			CountryCode: desc.Code,
		}
	}
	failure.Country = desc.Name
	failure.CountryCode = desc.Code
	switch failure.Kind {
	case scrape.FailureCaptcha:
		// Every scrape error updates the breaker, including CAPTCHA
		// (spec.md §7 "all other scrape failures also update the breaker").
		e.breaker.RecordFailure(desc.Code)
		e.metrics.CaptchaTotal.WithLabelValues(desc.Code).Inc()
		e.metrics.ScrapeTotal.WithLabelValues("captcha", desc.Code).Inc()
	case scrape.FailureTimeout:
		e.breaker.RecordFailure(desc.Code)
		e.metrics.ScrapeTotal.WithLabelValues("timeout", desc.Code).Inc()
	default:
		e.breaker.RecordFailure(desc.Code)
		e.metrics.ScrapeTotal.WithLabelValues(string(failure.Kind), desc.Code).Inc()
	}
	return failure
}

// noExtractorError reports that a marketplace has no registered extractor
// (spec.md §4.1: surfaced to HTTP callers as 501).
type noExtractorError struct{ country string }

func (e *noExtractorError) Error() string {
	return fmt.Sprintf("no extractor registered for marketplace %s", e.country)
}

func (e *noExtractorError) NotImplemented() bool { return true }

func (e *Engine) readinessCheck(ctx context.Context) error {
	desc, ok := marketplace.ByCode(e.cfg.ReadyCheckCountry)
	if !ok {
		return fmt.Errorf("ready check country %q is not a recognized marketplace", e.cfg.ReadyCheckCountry)
	}
	url := fmt.Sprintf("https://%s/dp/%s", desc.Host, e.cfg.ReadyCheckProductID)
	_, err := e.Scrape(ctx, scrape.Request{URL: url})
	return err
}
