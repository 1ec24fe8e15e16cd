package core

import (
	"context"
	"sync"
	"time"
)

// jobResult is what collectCompleted reports back for one finished job.
type jobResult struct {
	JobID      string
	SubmitTime time.Time
	Err        error
}

type jobHandle struct {
	submitTime time.Time
	done       chan struct{}
	err        error
}

// WorkerPool bounds concurrent pipeline execution to N slots (spec §4.6). A
// ticketed counter (the buffered channel below) tracks capacity directly so
// availableSlots and submit can never race against each other the way a
// probe-then-act check on len(active) would.
type WorkerPool struct {
	tickets chan struct{}

	mu       sync.Mutex
	active   map[string]*jobHandle
	draining bool
	wg       sync.WaitGroup
}

// NewWorkerPool builds a pool with max concurrency n.
func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		n = 1
	}
	return &WorkerPool{
		tickets: make(chan struct{}, n),
		active:  make(map[string]*jobHandle),
	}
}

// AvailableSlots returns N minus the number of currently running jobs.
func (p *WorkerPool) AvailableSlots() int {
	return cap(p.tickets) - len(p.tickets)
}

// ActiveCount returns the number of jobs currently occupying a slot.
func (p *WorkerPool) ActiveCount() int {
	return len(p.tickets)
}

// Capacity returns the pool's configured maximum concurrency.
func (p *WorkerPool) Capacity() int {
	return cap(p.tickets)
}

// Submit accepts the job iff AvailableSlots() > 0 and the pool is not
// draining. fn is run on its own goroutine; the slot is released when fn returns.
func (p *WorkerPool) Submit(jobID string, fn func(ctx context.Context) error) bool {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return false
	}
	select {
	case p.tickets <- struct{}{}:
	default:
		p.mu.Unlock()
		return false
	}
	handle := &jobHandle{submitTime: time.Now(), done: make(chan struct{})}
	p.active[jobID] = handle
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() { <-p.tickets }()
		handle.err = fn(context.Background())
		close(handle.done)
	}()
	return true
}

// CollectCompleted removes every finished handle and returns its outcome.
func (p *WorkerPool) CollectCompleted() []jobResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []jobResult
	for id, h := range p.active {
		select {
		case <-h.done:
			out = append(out, jobResult{JobID: id, SubmitTime: h.submitTime, Err: h.err})
			delete(p.active, id)
		default:
		}
	}
	return out
}

// Shutdown prevents new submissions and, if drain is true, blocks until every
// active job finishes naturally (jobs are never force-killed once started,
// spec §5 "forced kill is not supported once a Task has started").
func (p *WorkerPool) Shutdown(drain bool) {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()

	if drain {
		p.wg.Wait()
	}
}
