package dispatcher_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scrapehub/scrapehub/internal/dispatcher"
)

func TestSubmitAwaitRoundTrip(t *testing.T) {
	d := dispatcher.New(2, nil)
	defer d.Close()

	h := d.Submit(func(ctx context.Context) (any, error) {
		return 42, nil
	})
	result, err := dispatcher.Await(h, time.Second)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if result.(int) != 42 {
		t.Errorf("Await() = %v, want 42", result)
	}
}

func TestAwaitPropagatesTaskError(t *testing.T) {
	d := dispatcher.New(1, nil)
	defer d.Close()

	wantErr := errors.New("boom")
	h := d.Submit(func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	_, err := dispatcher.Await(h, time.Second)
	if err != wantErr {
		t.Errorf("Await() error = %v, want %v", err, wantErr)
	}
}

func TestAwaitTimesOutWithoutKillingTask(t *testing.T) {
	d := dispatcher.New(1, nil)
	defer d.Close()

	started := make(chan struct{})
	h := d.Submit(func(ctx context.Context) (any, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return "late", nil
	})
	<-started
	_, err := dispatcher.Await(h, time.Millisecond)
	if err != dispatcher.ErrTimeout {
		t.Fatalf("Await() error = %v, want ErrTimeout", err)
	}
}

func TestSubmitRecoversPanicAsError(t *testing.T) {
	d := dispatcher.New(1, nil)
	defer d.Close()

	h := d.Submit(func(ctx context.Context) (any, error) {
		panic("kaboom")
	})
	_, err := dispatcher.Await(h, time.Second)
	if err == nil {
		t.Fatal("expected the panic to surface as an error")
	}
}

func TestQueueDepthTracksInFlightTasks(t *testing.T) {
	d := dispatcher.New(1, nil)
	defer d.Close()

	release := make(chan struct{})
	var entered int32
	h := d.Submit(func(ctx context.Context) (any, error) {
		atomic.StoreInt32(&entered, 1)
		<-release
		return nil, nil
	})

	for i := 0; i < 100 && atomic.LoadInt32(&entered) == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if depth := d.QueueDepth(); depth != 1 {
		t.Errorf("QueueDepth() = %d, want 1 while task runs", depth)
	}
	close(release)
	if _, err := dispatcher.Await(h, time.Second); err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if depth := d.QueueDepth(); depth != 0 {
		t.Errorf("QueueDepth() = %d, want 0 after completion", depth)
	}
}
