// Package dispatcher implements the bounded FIFO worker pool that fronts
// every scrape (spec.md §4.1). Requests are admitted in arrival order and
// run by up to W concurrent workers; the queue itself is unbounded by
// design.
package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrTimeout is returned by Await when a task does not complete within the
// caller-supplied deadline.
var ErrTimeout = errors.New("dispatcher: task timed out")

// Task is submitted work. It must honor ctx cancellation.
type Task func(ctx context.Context) (any, error)

// handle is the ticket returned by Submit.
type handle struct {
	done   chan struct{}
	result any
	err    error
}

// Dispatcher runs submitted tasks on a bounded pool of workers. Submit
// blocks the caller once limit workers are busy, which gives admission its
// FIFO order for free: errgroup.Group.Go only returns once a slot frees.
type Dispatcher struct {
	logger *zap.Logger

	depth    int64
	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc
	limit    int
}

// New constructs a Dispatcher bounded to limit concurrent workers.
func New(limit int, logger *zap.Logger) *Dispatcher {
	if limit <= 0 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	return &Dispatcher{
		logger:   logger,
		group:    group,
		groupCtx: groupCtx,
		cancel:   cancel,
		limit:    limit,
	}
}

// Submit enqueues task and returns a handle that Await can block on. Workers
// isolate panics: a panicking task surfaces as an error on its own handle
// and never brings down the pool.
func (d *Dispatcher) Submit(task Task) *handle {
	h := &handle{done: make(chan struct{})}
	atomic.AddInt64(&d.depth, 1)

	d.group.Go(func() error {
		defer close(h.done)
		defer atomic.AddInt64(&d.depth, -1)
		defer func() {
			if r := recover(); r != nil {
				h.err = errorsFromPanic(r)
				if d.logger != nil {
					d.logger.Error("dispatcher task panicked", zap.Any("recover", r))
				}
			}
		}()
		result, err := task(d.groupCtx)
		h.result, h.err = result, err
		return nil
	})
	return h
}

// Await blocks until the task behind h completes or timeout elapses,
// whichever is first. A timed-out task keeps running in the background;
// the caller only stops waiting for it.
func Await(h *handle, timeout time.Duration) (any, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.result, h.err
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// QueueDepth reports the number of tasks submitted but not yet completed.
func (d *Dispatcher) QueueDepth() int {
	return int(atomic.LoadInt64(&d.depth))
}

// Close cancels the shared context passed to in-flight tasks and waits for
// the pool to drain, used on graceful shutdown (spec.md's supplemented
// graceful-shutdown feature).
func (d *Dispatcher) Close() {
	d.cancel()
	_ = d.group.Wait()
}

func errorsFromPanic(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errUnknownPanic
}

var errUnknownPanic = errors.New("dispatcher: task panicked")
