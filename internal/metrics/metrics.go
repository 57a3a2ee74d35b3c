// Package metrics exposes the Prometheus series the service publishes on
// GET /metrics (spec.md §6 "Metrics").
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry wraps the named collectors the engine updates as it runs.
type Registry struct {
	reg *prometheus.Registry

	APIRequestsTotal  *prometheus.CounterVec
	ScrapeTotal       *prometheus.CounterVec
	CaptchaTotal      *prometheus.CounterVec
	ScrapeDuration    *prometheus.HistogramVec
	ScrapeQueueDepth  prometheus.Gauge
	CacheSize         prometheus.Gauge
}

// New constructs a Registry with its own prometheus.Registry, avoiding the
// global default registry so multiple engines (as in tests) never collide.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP API requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		ScrapeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrape_total",
			Help: "Total scrape attempts by outcome and marketplace.",
		}, []string{"status", "country"}),
		CaptchaTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captcha_total",
			Help: "Total CAPTCHA challenges encountered by marketplace.",
		}, []string{"country"}),
		ScrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "End-to-end scrape duration by marketplace.",
			Buckets: prometheus.DefBuckets,
		}, []string{"country"}),
		ScrapeQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scrape_queue_depth",
			Help: "Number of scrape tasks submitted but not yet complete.",
		}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Number of entries currently held in the product cache.",
		}),
	}

	reg.MustRegister(r.APIRequestsTotal, r.ScrapeTotal, r.CaptchaTotal, r.ScrapeDuration, r.ScrapeQueueDepth, r.CacheSize)
	return r
}

// Gatherer exposes the underlying collector set to the /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
