// Package breaker implements the per-country circuit breaker
// (spec.md §4.5): a fail-fast gate that refuses traffic to a
// known-bad marketplace until a cool-off elapses.
package breaker

import (
	"sync"
	"time"
)

const (
	// DefaultFailureThreshold is T in spec.md §4.5.
	DefaultFailureThreshold = 5
	// DefaultCoolOff is C in spec.md §4.5.
	DefaultCoolOff = 60 * time.Second
)

type state struct {
	failures  int
	openUntil time.Time
}

// Breaker tracks independent failure state per country code.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	coolOff   time.Duration
	states    map[string]*state
	now       func() time.Time
}

// New constructs a Breaker with the given failure threshold and cool-off.
func New(threshold int, coolOff time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if coolOff <= 0 {
		coolOff = DefaultCoolOff
	}
	return &Breaker{
		threshold: threshold,
		coolOff:   coolOff,
		states:    make(map[string]*state),
		now:       time.Now,
	}
}

// IsOpen reports whether country is currently fail-fast gated. An expired
// open window is cleared as a side effect (spec.md §4.5, §3 invariant).
func (b *Breaker) IsOpen(country string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[country]
	if !ok || s.openUntil.IsZero() {
		return false
	}
	if b.now().Before(s.openUntil) {
		return true
	}
	s.failures = 0
	s.openUntil = time.Time{}
	return false
}

// RecordSuccess clears the failure counter and any open window for country.
func (b *Breaker) RecordSuccess(country string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, country)
}

// RecordFailure increments the failure counter for country, opening the
// breaker once the threshold is reached.
func (b *Breaker) RecordFailure(country string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[country]
	if !ok {
		s = &state{}
		b.states[country] = s
	}
	s.failures++
	if s.failures >= b.threshold {
		s.openUntil = b.now().Add(b.coolOff)
	}
}
