package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scrapehub/scrapehub/internal/config"
	"github.com/scrapehub/scrapehub/internal/metrics"
	"github.com/scrapehub/scrapehub/internal/prober"
	"github.com/scrapehub/scrapehub/internal/scrape"
	"github.com/scrapehub/scrapehub/internal/server"
)

type fakeEngine struct {
	cfg         config.Config
	readyStatus prober.Status
	metricsReg  *metrics.Registry
	record      *scrape.ProductRecord
	scrapeErr   error
	allowKey    bool
	allowIP     bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		cfg:         config.Config{AllowedOrigins: []string{"*"}, PrimaryAPIKey: "test-key"},
		readyStatus: prober.Status{Ready: true},
		metricsReg:  metrics.New(),
		allowKey:    true,
		allowIP:     true,
	}
}

func (f *fakeEngine) Scrape(ctx context.Context, req scrape.Request) (*scrape.ProductRecord, error) {
	return f.record, f.scrapeErr
}
func (f *fakeEngine) AllowKey(apiKey string) bool           { return f.allowKey }
func (f *fakeEngine) AllowIP(ip string) bool                { return f.allowIP }
func (f *fakeEngine) ValidAPIKeys() map[string]struct{}     { return f.cfg.ValidAPIKeys() }
func (f *fakeEngine) ReadyStatus() prober.Status            { return f.readyStatus }
func (f *fakeEngine) Metrics() *metrics.Registry            { return f.metricsReg }
func (f *fakeEngine) Config() config.Config                 { return f.cfg }

func TestHealthEndpoint(t *testing.T) {
	engine := newFakeEngine()
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCountriesEndpointListsFifteenMarketplaces(t *testing.T) {
	engine := newFakeEngine()
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodGet, "/api/countries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body struct {
		Countries []map[string]any `json:"countries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Countries) != 15 {
		t.Errorf("countries count = %d, want 15", len(body.Countries))
	}
}

func TestScrapeRequiresAuth(t *testing.T) {
	engine := newFakeEngine()
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestScrapeSucceedsWithValidAPIKey(t *testing.T) {
	engine := newFakeEngine()
	engine.record = &scrape.ProductRecord{ProductID: "B0ABCDEFGH", Title: "Wireless Mouse"}
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestScrapeMapsCaptchaFailureTo500(t *testing.T) {
	engine := newFakeEngine()
	engine.scrapeErr = scrape.NewFailure(scrape.FailureCaptcha, "bot-defense challenge detected")
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "CAPTCHA_REQUIRED" {
		t.Errorf("error = %q, want %q", body.Error, "CAPTCHA_REQUIRED")
	}
}

func TestScrapeMapsBreakerOpenTo503(t *testing.T) {
	engine := newFakeEngine()
	engine.scrapeErr = &scrape.Failure{Kind: scrape.FailureBreakerOpen, Message: "circuit breaker open"}
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "Service temporarily unavailable" {
		t.Errorf("error = %q, want %q", body.Error, "Service temporarily unavailable")
	}
}

func TestScrapeRequiresAuthReturnsMissingKeyMessage(t *testing.T) {
	engine := newFakeEngine()
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "API key is required" {
		t.Errorf("error = %q, want %q", body.Error, "API key is required")
	}
}

func TestScrapeRejectsWrongAPIKeyWith403(t *testing.T) {
	engine := newFakeEngine()
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "Invalid API key" {
		t.Errorf("error = %q, want %q", body.Error, "Invalid API key")
	}
}

func TestScrapeSuccessResponseShape(t *testing.T) {
	engine := newFakeEngine()
	engine.record = &scrape.ProductRecord{ProductID: "B0ABCDEFGH", Merchant: "Amazon.com", CountryCode: "US", Title: "Wireless Mouse"}
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body struct {
		Success         bool           `json:"success"`
		Country         string         `json:"country"`
		CountryCode     string         `json:"country_code"`
		DetectedCountry string         `json:"detected_country"`
		Cached          bool           `json:"cached"`
		Data            map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Success || body.Country != "Amazon.com" || body.CountryCode != "US" || body.DetectedCountry != "US" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.Data["asin"] != "B0ABCDEFGH" {
		t.Errorf("data.asin = %v, want B0ABCDEFGH", body.Data["asin"])
	}
	if body.Cached {
		t.Error("cached should be omitted/false for a fresh scrape")
	}
}

func TestScrapeMapsNotImplementedTo501(t *testing.T) {
	engine := newFakeEngine()
	engine.scrapeErr = notImplementedErr{}
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

type notImplementedErr struct{}

func (notImplementedErr) Error() string       { return "no extractor registered" }
func (notImplementedErr) NotImplemented() bool { return true }

func TestReadyEndpointReflectsProbeStatus(t *testing.T) {
	engine := newFakeEngine()
	engine.readyStatus = prober.Status{Ready: false, LastError: "marketplace unreachable"}
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRateLimitExceededReturns429(t *testing.T) {
	engine := newFakeEngine()
	engine.allowKey = false
	router := server.NewRouter(server.RouterConfig{Engine: engine})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"https://amazon.com/dp/B0ABCDEFGH"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}
