// Package metrics provides observability for the stepcat server.
// Counters cover the sensor pipeline, persistence syncs, and WebSocket traffic.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and correctness counters.
type Collector struct {
	// Sensor pipeline
	ReadingsProcessed int64
	ReadingsDropped   int64 // queue full or clock-drift guard

	// Persistence
	SyncCommits int64
	SyncErrors  int64

	// Economy
	RewardUnits          int64
	Rollovers            int64
	RebootRecalibrations int64

	// Decay engine
	DecayRuns   int64
	DecayWrites int64

	// WebSocket
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64

	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordReading counts a processed sensor reading.
func (c *Collector) RecordReading() {
	atomic.AddInt64(&c.ReadingsProcessed, 1)
}

// RecordDroppedReading counts a reading discarded before processing.
func (c *Collector) RecordDroppedReading() {
	atomic.AddInt64(&c.ReadingsDropped, 1)
}

// RecordSync counts one persistence sync attempt.
func (c *Collector) RecordSync(err error) {
	if err != nil {
		atomic.AddInt64(&c.SyncErrors, 1)
		return
	}
	atomic.AddInt64(&c.SyncCommits, 1)
}

// RecordRewardUnits counts granted reward units.
func (c *Collector) RecordRewardUnits(units int64) {
	atomic.AddInt64(&c.RewardUnits, units)
}

// RecordRollover counts a day rollover.
func (c *Collector) RecordRollover() {
	atomic.AddInt64(&c.Rollovers, 1)
}

// RecordRecalibration counts a reboot-triggered baseline recalibration.
func (c *Collector) RecordRecalibration() {
	atomic.AddInt64(&c.RebootRecalibrations, 1)
}

// RecordDecay counts one decay evaluation; wrote reports whether the result
// was persisted.
func (c *Collector) RecordDecay(wrote bool) {
	atomic.AddInt64(&c.DecayRuns, 1)
	if wrote {
		atomic.AddInt64(&c.DecayWrites, 1)
	}
}

// WSConnect / WSDisconnect track active connections.
func (c *Collector) WSConnect()    { atomic.AddInt64(&c.WSConnectionsActive, 1) }
func (c *Collector) WSDisconnect() { atomic.AddInt64(&c.WSConnectionsActive, -1) }

// WSMessageIn / WSMessageOut count traffic.
func (c *Collector) WSMessageIn()  { atomic.AddInt64(&c.WSMessagesIn, 1) }
func (c *Collector) WSMessageOut() { atomic.AddInt64(&c.WSMessagesOut, 1) }

// Snapshot is a point-in-time copy safe for serialization.
type Snapshot struct {
	UptimeSeconds        float64 `json:"uptime_seconds"`
	ReadingsProcessed    int64   `json:"readings_processed"`
	ReadingsDropped      int64   `json:"readings_dropped"`
	SyncCommits          int64   `json:"sync_commits"`
	SyncErrors           int64   `json:"sync_errors"`
	RewardUnits          int64   `json:"reward_units"`
	Rollovers            int64   `json:"rollovers"`
	RebootRecalibrations int64   `json:"reboot_recalibrations"`
	DecayRuns            int64   `json:"decay_runs"`
	DecayWrites          int64   `json:"decay_writes"`
	WSConnectionsActive  int64   `json:"ws_connections_active"`
	WSMessagesIn         int64   `json:"ws_messages_in"`
	WSMessagesOut        int64   `json:"ws_messages_out"`
}

// Snapshot returns a consistent copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	start := c.StartTime
	c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:        time.Since(start).Seconds(),
		ReadingsProcessed:    atomic.LoadInt64(&c.ReadingsProcessed),
		ReadingsDropped:      atomic.LoadInt64(&c.ReadingsDropped),
		SyncCommits:          atomic.LoadInt64(&c.SyncCommits),
		SyncErrors:           atomic.LoadInt64(&c.SyncErrors),
		RewardUnits:          atomic.LoadInt64(&c.RewardUnits),
		Rollovers:            atomic.LoadInt64(&c.Rollovers),
		RebootRecalibrations: atomic.LoadInt64(&c.RebootRecalibrations),
		DecayRuns:            atomic.LoadInt64(&c.DecayRuns),
		DecayWrites:          atomic.LoadInt64(&c.DecayWrites),
		WSConnectionsActive:  atomic.LoadInt64(&c.WSConnectionsActive),
		WSMessagesIn:         atomic.LoadInt64(&c.WSMessagesIn),
		WSMessagesOut:        atomic.LoadInt64(&c.WSMessagesOut),
	}
}

// Handler serves the current snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.Snapshot())
	}
}
