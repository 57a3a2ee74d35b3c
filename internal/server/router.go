// Package server exposes the scrape orchestration engine over HTTP
// (spec.md §6): gin routing, auth, CORS, request-id propagation, and the
// HTTP status mapping for the scrape failure taxonomy.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scrapehub/scrapehub/internal/config"
	"github.com/scrapehub/scrapehub/internal/marketplace"
	"github.com/scrapehub/scrapehub/internal/metrics"
	"github.com/scrapehub/scrapehub/internal/prober"
	"github.com/scrapehub/scrapehub/internal/scrape"
)

const (
	requestIDHeader = "X-Request-Id"
	apiKeyHeader    = "X-API-Key"
	apiKeyQueryArg  = "api_key"
	bearerPrefix    = "Bearer "
)

// Engine is the narrow capability the router needs from internal/engine.
type Engine interface {
	Scrape(ctx context.Context, req scrape.Request) (*scrape.ProductRecord, error)
	AllowKey(apiKey string) bool
	AllowIP(ip string) bool
	ValidAPIKeys() map[string]struct{}
	ReadyStatus() prober.Status
	Metrics() *metrics.Registry
	Config() config.Config
}

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	Engine Engine
	Logger *zap.Logger
}

// NewRouter builds the gin engine exposing every route in spec.md §6.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(corsMiddleware(cfg.Engine.Config().AllowedOrigins))
	r.Use(loggingMiddleware(logger))

	r.GET("/", indexHandler)
	r.GET("/api/health", healthHandler)
	r.GET("/api/ready", readyHandler(cfg.Engine))
	r.GET("/api/countries", countriesHandler)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Engine.Metrics().Gatherer(), promhttp.HandlerOpts{})))

	authorized := r.Group("/api")
	authorized.Use(authMiddleware(cfg.Engine))
	authorized.Use(rateLimitMiddleware(cfg.Engine))
	authorized.POST("/scrape", scrapeHandler(cfg.Engine))

	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+apiKeyHeader+", Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// authMiddleware accepts either a legacy/current API key (X-API-Key header
// or api_key query parameter, checked against both API_KEY and API_KEYS)
// or, when JWT is enabled, a bearer token (spec.md §6 "Authentication").
func authMiddleware(engine Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := c.GetHeader(apiKeyHeader)
		if candidate == "" {
			candidate = c.Query(apiKeyQueryArg)
		}
		if candidate != "" {
			if _, ok := engine.ValidAPIKeys()[candidate]; ok {
				c.Set("auth_principal", candidate)
				c.Next()
				return
			}
		}

		cfg := engine.Config()
		bearerPresent := false
		if cfg.EnableJWT {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, bearerPrefix) {
				bearerPresent = true
				tokenString := strings.TrimPrefix(auth, bearerPrefix)
				token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
					return []byte(cfg.JWTSecret), nil
				}, jwt.WithValidMethods([]string{"HS256"}))
				if err == nil && token.Valid {
					c.Set("auth_principal", "jwt")
					c.Next()
					return
				}
			}
		}

		if candidate == "" && !bearerPresent {
			writeError(c, http.StatusUnauthorized, "API key is required", "", "", "")
		} else {
			writeError(c, http.StatusForbidden, "Invalid API key", "", "", "")
		}
		c.Abort()
	}
}

func rateLimitMiddleware(engine Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := c.Get("auth_principal")
		key, _ := principal.(string)
		if !engine.AllowKey(key) {
			writeError(c, http.StatusTooManyRequests, "rate_limited", "API key rate limit exceeded", "", "")
			c.Abort()
			return
		}
		if !engine.AllowIP(c.ClientIP()) {
			writeError(c, http.StatusTooManyRequests, "rate_limited", "client IP rate limit exceeded", "", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func indexHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, "<html><body><h1>Marketplace Scrape Orchestration Service</h1></body></html>")
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

func readyHandler(engine Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := engine.ReadyStatus()
		if !status.Ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success":    false,
				"ready":      false,
				"error":      status.LastError,
				"last_check": status.LastCheckInstant,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "ready": true, "last_check": status.LastCheckInstant})
	}
}

func countriesHandler(c *gin.Context) {
	out := make([]gin.H, 0, len(marketplace.Registry))
	for _, d := range marketplace.Registry {
		out = append(out, gin.H{
			"code":          d.Code,
			"name":          d.Name,
			"host":          d.Host,
			"currency":      d.Currency,
			"currency_code": d.CurrencyCode,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "countries": out})
}

type scrapeRequestBody struct {
	URL      string `json:"url" binding:"required"`
	Headless *bool  `json:"headless"`
	Proxy    string `json:"proxy"`
}

func scrapeHandler(engine Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body scrapeRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			writeError(c, http.StatusBadRequest, "bad_request", "request body must include a url field", "", "")
			return
		}

		principal, _ := c.Get("auth_principal")
		apiKey, _ := principal.(string)

		record, err := engine.Scrape(c.Request.Context(), scrape.Request{
			URL:              body.URL,
			HeadlessOverride: body.Headless,
			ProxyOverride:    body.Proxy,
			APIKey:           apiKey,
			ClientIP:         c.ClientIP(),
		})
		if err != nil {
			writeScrapeError(c, err)
			return
		}
		response := gin.H{
			"success":          true,
			"country":          record.Merchant,
			"country_code":     record.CountryCode,
			"detected_country": record.CountryCode,
			"data":             record,
		}
		if record.Cached {
			response["cached"] = true
		}
		c.JSON(http.StatusOK, response)
	}
}

func writeScrapeError(c *gin.Context, err error) {
	type notImplemented interface{ NotImplemented() bool }
	if ni, ok := err.(notImplemented); ok && ni.NotImplemented() {
		writeError(c, http.StatusNotImplemented, "not_implemented", err.Error(), "", "")
		return
	}

	failure, ok := err.(*scrape.Failure)
	if !ok {
		writeError(c, http.StatusInternalServerError, "internal_error", "scrape failed", "", "")
		return
	}

	switch failure.Kind {
	case scrape.FailureInvalidURL:
		writeError(c, http.StatusBadRequest, "invalid_url", failure.Message, "", "")
	case scrape.FailureCaptcha:
		writeError(c, http.StatusInternalServerError, "CAPTCHA_REQUIRED", "", failure.Country, failure.CountryCode)
	case scrape.FailureBreakerOpen:
		writeError(c, http.StatusServiceUnavailable, "Service temporarily unavailable", "", failure.Country, failure.CountryCode)
	case scrape.FailureTimeout:
		writeError(c, http.StatusGatewayTimeout, "timeout", failure.Message, failure.Country, failure.CountryCode)
	case scrape.FailureRenderError:
		writeError(c, http.StatusInternalServerError, "render_error", failure.Message, failure.Country, failure.CountryCode)
	default:
		writeError(c, http.StatusInternalServerError, "upstream_error", failure.Message, failure.Country, failure.CountryCode)
	}
}

func writeError(c *gin.Context, status int, code, message, country, countryCode string) {
	body := gin.H{"success": false, "error": code}
	if message != "" {
		body["message"] = message
	}
	if country != "" {
		body["country"] = country
	}
	if countryCode != "" {
		body["country_code"] = countryCode
	}
	c.JSON(status, body)
}
