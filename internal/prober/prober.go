// Package prober implements the background readiness check driving the
// GET /api/ready verdict (spec.md §4.8).
package prober

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Check runs one full scrape pipeline invocation for the configured probe
// target and returns its outcome.
type Check func(ctx context.Context) error

// Status is the latest probe outcome, read by the /api/ready handler.
type Status struct {
	Ready            bool
	LastCheckInstant time.Time
	LastError        string
}

// Prober periodically runs Check and exposes its last verdict. When no
// probe target is configured, the prober is inert and always reports
// ready (spec.md §4.8 "no configured target").
type Prober struct {
	mu     sync.RWMutex
	status Status

	check    Check
	interval time.Duration
	logger   *zap.Logger

	now func() time.Time
}

// New constructs a Prober. A nil check means no probe target is configured;
// the prober then reports ready without ever running a check.
func New(check Check, interval time.Duration, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Prober{
		check:    check,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
	if check == nil {
		p.status = Status{Ready: true}
	}
	return p
}

// Status returns the most recent probe verdict.
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Run executes the probe loop until ctx is canceled. The first check runs
// immediately so readiness is known before the process accepts traffic.
func (p *Prober) Run(ctx context.Context) {
	if p.check == nil {
		return
	}

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Prober) runOnce(ctx context.Context) {
	err := p.check(ctx)
	status := Status{LastCheckInstant: p.now()}
	if err != nil {
		status.Ready = false
		status.LastError = err.Error()
		p.logger.Warn("readiness probe failed", zap.Error(err))
	} else {
		status.Ready = true
		p.logger.Debug("readiness probe succeeded")
	}

	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}
