package metrics_test

import (
	"testing"

	"github.com/scrapehub/scrapehub/internal/metrics"
)

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("New() panicked: %v", r)
		}
	}()
	r := metrics.New()

	r.APIRequestsTotal.WithLabelValues("/api/scrape", "200").Inc()
	r.ScrapeTotal.WithLabelValues("success", "US").Inc()
	r.CaptchaTotal.WithLabelValues("DE").Inc()
	r.ScrapeDuration.WithLabelValues("US").Observe(1.5)
	r.ScrapeQueueDepth.Set(3)
	r.CacheSize.Set(10)

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 6 {
		t.Errorf("Gather() returned %d metric families, want 6", len(families))
	}
}

func TestTwoRegistriesDoNotCollide(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.ScrapeTotal.WithLabelValues("success", "US").Inc()

	families, err := b.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() == "scrape_total" && len(family.GetMetric()) != 0 {
			t.Error("a second Registry should start with no recorded series")
		}
	}
}
