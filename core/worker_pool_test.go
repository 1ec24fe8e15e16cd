package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestWorkerPoolCapacityAndSlots(t *testing.T) {
	p := NewWorkerPool(2)
	if p.Capacity() != 2 {
		t.Fatalf("Capacity() = %d, want 2", p.Capacity())
	}
	if got := p.AvailableSlots(); got != 2 {
		t.Fatalf("AvailableSlots() = %d, want 2", got)
	}
}

func TestWorkerPoolZeroOrNegativeSizeClampsToOne(t *testing.T) {
	for _, n := range []int{0, -5} {
		p := NewWorkerPool(n)
		if p.Capacity() != 1 {
			t.Fatalf("NewWorkerPool(%d).Capacity() = %d, want 1", n, p.Capacity())
		}
	}
}

func TestWorkerPoolSubmitRejectsWhenFull(t *testing.T) {
	p := NewWorkerPool(1)
	release := make(chan struct{})
	ok := p.Submit("job-1", func(ctx context.Context) error {
		<-release
		return nil
	})
	if !ok {
		t.Fatal("expected first submit to succeed")
	}
	if p.AvailableSlots() != 0 {
		t.Fatalf("AvailableSlots() = %d, want 0", p.AvailableSlots())
	}
	if ok := p.Submit("job-2", func(ctx context.Context) error { return nil }); ok {
		t.Fatal("expected second submit to be rejected while pool is full")
	}
	close(release)
	waitForCondition(t, time.Second, func() bool { return p.AvailableSlots() == 1 })
}

func TestWorkerPoolCollectCompletedReportsError(t *testing.T) {
	p := NewWorkerPool(1)
	wantErr := errors.New("boom")
	if ok := p.Submit("job-1", func(ctx context.Context) error { return wantErr }); !ok {
		t.Fatal("expected submit to succeed")
	}
	waitForCondition(t, time.Second, func() bool { return p.AvailableSlots() == 1 })

	results := p.CollectCompleted()
	if len(results) != 1 {
		t.Fatalf("CollectCompleted() returned %d results, want 1", len(results))
	}
	if results[0].JobID != "job-1" || !errors.Is(results[0].Err, wantErr) {
		t.Fatalf("CollectCompleted() = %+v, want job-1/%v", results[0], wantErr)
	}
	if more := p.CollectCompleted(); len(more) != 0 {
		t.Fatalf("CollectCompleted() returned %d results on second call, want 0", len(more))
	}
}

func TestWorkerPoolShutdownRejectsAndDrains(t *testing.T) {
	p := NewWorkerPool(1)
	started := make(chan struct{})
	finished := make(chan struct{})
	if ok := p.Submit("job-1", func(ctx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		close(finished)
		return nil
	}); !ok {
		t.Fatal("expected submit to succeed")
	}
	<-started

	p.Shutdown(true)

	select {
	case <-finished:
	default:
		t.Fatal("expected Shutdown(true) to block until the active job finished")
	}
	if ok := p.Submit("job-2", func(ctx context.Context) error { return nil }); ok {
		t.Fatal("expected submit after shutdown to be rejected")
	}
}
