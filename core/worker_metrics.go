package core

import (
	"context"
	"encoding/json"
	"runtime"
	"time"
)

const (
	heartbeatKeyPrefix = "judge-engine:heartbeat:"
	heartbeatTTL       = 45 * time.Second
)

// heartbeatKey returns the Redis key for a given dispatcher instance ID.
func heartbeatKey(instanceID string) string {
	return heartbeatKeyPrefix + instanceID
}

// SaveHeartbeat stores heartbeat JSON with a TTL so a dead instance's key expires on its own.
func SaveHeartbeat(ctx context.Context, client RedisClientRaw, hb Heartbeat) error {
	hb.UpdatedAt = time.Now()
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	return client.Set(ctx, heartbeatKey(hb.InstanceID), data, heartbeatTTL).Err()
}

// Heartbeat is the periodic status a dispatcher instance publishes to Redis
// for the ops surface to read (spec's Worker Pool is per-process; Redis is
// used only to expose its state, not to coordinate it).
type Heartbeat struct {
	InstanceID     string    `json:"instance_id"`
	Hostname       string    `json:"hostname"`
	PID            int       `json:"pid"`
	PoolSize       int       `json:"pool_size"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	Status         string    `json:"status"` // idle|busy|starting
	ActiveCount    int       `json:"active_count"`
	ActiveJobs     []string  `json:"active_jobs,omitempty"`
	ProcessedTotal int64     `json:"processed_total"`
	FailedTotal    int64     `json:"failed_total"`
	LastError      string    `json:"last_error,omitempty"`
	MemoryRSSBytes uint64    `json:"memory_rss_bytes"`
	NumGoroutine   int       `json:"num_goroutine"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateRuntimeStats overwrites the memory/goroutine fields with current values.
func (h *Heartbeat) UpdateRuntimeStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	h.MemoryRSSBytes = ms.Sys
	h.NumGoroutine = runtime.NumGoroutine()
}
