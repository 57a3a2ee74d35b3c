package ratelimit_test

import (
	"testing"

	"github.com/scrapehub/scrapehub/internal/ratelimit"
)

func TestEmptyPrincipalAlwaysAllowed(t *testing.T) {
	l := ratelimit.New(1, 0)
	for i := 0; i < 5; i++ {
		if !l.Allow("") {
			t.Fatal("empty principal should always be allowed")
		}
	}
}

func TestBurstExhaustionThenDenied(t *testing.T) {
	l := ratelimit.New(60, 2)
	if !l.Allow("key-a") {
		t.Fatal("first request should be allowed")
	}
	if !l.Allow("key-a") {
		t.Fatal("second request within burst should be allowed")
	}
	if l.Allow("key-a") {
		t.Fatal("third immediate request should exceed burst and be denied")
	}
}

func TestPrincipalsAreIndependent(t *testing.T) {
	l := ratelimit.New(60, 1)
	if !l.Allow("key-a") {
		t.Fatal("key-a first request should be allowed")
	}
	if !l.Allow("key-b") {
		t.Fatal("key-b should have its own bucket, unaffected by key-a")
	}
}
