package core

import (
	"context"
	"os"
	"sync"
	"time"
)

// HeartbeatState aggregates one dispatcher process's live status between
// periodic flushes to Redis.
type HeartbeatState struct {
	mu     sync.Mutex
	hb     Heartbeat
	active map[string]time.Time
	ticker *time.Ticker
}

func NewHeartbeatState(instanceID, hostname string, poolSize int) *HeartbeatState {
	return &HeartbeatState{
		hb: Heartbeat{
			InstanceID: instanceID,
			Hostname:   hostname,
			PID:        os.Getpid(),
			PoolSize:   poolSize,
			Status:     "starting",
			StartedAt:  time.Now(),
			UpdatedAt:  time.Now(),
			ActiveJobs: []string{},
		},
		active: make(map[string]time.Time),
		ticker: time.NewTicker(5 * time.Second),
	}
}

// Start flushes a heartbeat immediately, then on every tick until ctx is done.
func (s *HeartbeatState) Start(ctx context.Context, client RedisClientRaw) {
	s.flush(ctx, client)
	defer s.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.flush(ctx, client)
		}
	}
}

// JobStarted records a submission beginning its pipeline run.
func (s *HeartbeatState) JobStarted(submissionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hb.Status = "busy"
	s.active[submissionID] = time.Now()
	s.updateActiveFieldsLocked()
}

// JobFinished records a submission's pipeline completion and whether it errored.
func (s *HeartbeatState) JobFinished(submissionID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, submissionID)
	s.hb.ProcessedTotal++
	if err != nil {
		s.hb.FailedTotal++
		s.hb.LastError = err.Error()
	}
	if len(s.active) == 0 {
		s.hb.Status = "idle"
	} else {
		s.hb.Status = "busy"
	}
	s.updateActiveFieldsLocked()
}

func (s *HeartbeatState) updateActiveFieldsLocked() {
	s.hb.ActiveCount = len(s.active)
	s.hb.ActiveJobs = s.hb.ActiveJobs[:0]
	for id := range s.active {
		if len(s.hb.ActiveJobs) >= 10 {
			break
		}
		s.hb.ActiveJobs = append(s.hb.ActiveJobs, id)
	}
}

func (s *HeartbeatState) flush(ctx context.Context, client RedisClientRaw) {
	s.mu.Lock()
	s.hb.UptimeSeconds = int64(time.Since(s.hb.StartedAt).Seconds())
	s.hb.UpdateRuntimeStats()
	hbCopy := s.hb
	s.mu.Unlock()
	_ = SaveHeartbeat(ctx, client, hbCopy)
}
