package breaker_test

import (
	"testing"
	"time"

	"github.com/scrapehub/scrapehub/internal/breaker"
)

func TestOpensAtThreshold(t *testing.T) {
	b := breaker.New(3, time.Minute)
	const country = "US"

	for i := 0; i < 2; i++ {
		b.RecordFailure(country)
		if b.IsOpen(country) {
			t.Fatalf("breaker opened after %d failures, want open only at threshold", i+1)
		}
	}
	b.RecordFailure(country)
	if !b.IsOpen(country) {
		t.Fatal("breaker should be open after reaching the failure threshold")
	}
}

func TestRecordSuccessClearsState(t *testing.T) {
	b := breaker.New(2, time.Minute)
	const country = "DE"
	b.RecordFailure(country)
	b.RecordSuccess(country)
	b.RecordFailure(country)
	if b.IsOpen(country) {
		t.Fatal("breaker should not be open: success reset the failure count")
	}
}

func TestIsOpenClearsAfterCoolOff(t *testing.T) {
	b := breaker.New(1, time.Millisecond)
	const country = "FR"
	b.RecordFailure(country)
	if !b.IsOpen(country) {
		t.Fatal("breaker should open immediately at threshold 1")
	}
	time.Sleep(5 * time.Millisecond)
	if b.IsOpen(country) {
		t.Fatal("breaker should have cleared after cool-off elapsed")
	}
}

func TestCountriesAreIndependent(t *testing.T) {
	b := breaker.New(1, time.Minute)
	b.RecordFailure("US")
	if b.IsOpen("CA") {
		t.Fatal("failures in one country must not open another country's breaker")
	}
}
