package core

import (
	"context"
	"fmt"
	"log"
	"time"
)

// runner is the subset of *Pipeline the Dispatcher depends on, so tests can
// substitute a fake without constructing a real Docker-backed Pipeline.
type runner interface {
	Run(ctx context.Context, sub Submission) error
}

// Dispatcher is the single cooperative loop that claims queued submissions
// and hands them to the Worker Pool (spec §4.7).
type Dispatcher struct {
	store    Store
	pool     *WorkerPool
	pipeline runner
	period   time.Duration
	batchMax int
	hb       *HeartbeatState
}

func NewDispatcher(store Store, pool *WorkerPool, pipeline *Pipeline, cfg Config, hb *HeartbeatState) *Dispatcher {
	return &Dispatcher{
		store:    store,
		pool:     pool,
		pipeline: pipeline,
		period:   cfg.DispatchPeriod,
		batchMax: cfg.ClaimBatchMax,
		hb:       hb,
	}
}

// Run blocks until ctx is cancelled, ticking every d.period. On cancellation
// it drains the pool and undoes any submissions still mid-flight.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return
		default:
		}

		d.tick(ctx)

		select {
		case <-ctx.Done():
			d.shutdown()
			return
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	for _, result := range d.pool.CollectCompleted() {
		if result.Err != nil {
			log.Printf("submission %s: pipeline error: %v", result.JobID, result.Err)
		} else {
			log.Printf("submission %s: pipeline finished in %s", result.JobID, time.Since(result.SubmitTime))
		}
	}

	k := d.pool.AvailableSlots()
	if k > d.batchMax {
		k = d.batchMax
	}
	if k <= 0 {
		return
	}

	claimed, err := d.store.ClaimQueued(ctx, k)
	if err != nil {
		log.Printf("dispatcher: claim failed, skipping this tick: %v", err)
		return
	}
	ClaimedTotal.Add(float64(len(claimed)))
	PoolActiveSlots.Set(float64(d.pool.ActiveCount()))
	PoolCapacity.Set(float64(d.pool.Capacity()))

	for _, sub := range claimed {
		sub := sub
		jobID := fmt.Sprintf("%d", sub.ID)
		if d.hb != nil {
			d.hb.JobStarted(jobID)
		}
		accepted := d.pool.Submit(jobID, func(runCtx context.Context) error {
			err := d.pipeline.Run(runCtx, sub)
			if d.hb != nil {
				d.hb.JobFinished(jobID, err)
			}
			return err
		})
		if !accepted {
			// k <= AvailableSlots() was just true; this should be unreachable
			// absent a logic error, but never leave a claimed row stranded.
			log.Printf("submission %d: pool rejected submit after claim, will rely on next undo", sub.ID)
		}
	}
}

func (d *Dispatcher) shutdown() {
	d.pool.Shutdown(true)
	if err := d.store.UndoRunning(context.Background()); err != nil {
		log.Printf("dispatcher: undo running failed: %v", err)
	}
}
