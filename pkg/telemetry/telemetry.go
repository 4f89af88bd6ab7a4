// Package telemetry collects in-process scan counters for the gateway.
// Counters are lock-free and cheap enough to update on every request.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates scan counts by modality and severity plus a running
// latency total. The zero value is not usable; use NewCollector.
type Collector struct {
	start time.Time

	totalScans     atomic.Int64
	rejectedInputs atomic.Int64
	totalLatencyUS atomic.Int64

	mu         sync.RWMutex
	byModality map[string]*atomic.Int64
	bySeverity map[string]*atomic.Int64
}

// NewCollector creates an empty collector anchored at the current time.
func NewCollector() *Collector {
	return &Collector{
		start:      time.Now(),
		byModality: make(map[string]*atomic.Int64),
		bySeverity: make(map[string]*atomic.Int64),
	}
}

// RecordScan counts one completed scan.
func (c *Collector) RecordScan(modality, severity string, latency time.Duration) {
	c.totalScans.Add(1)
	c.totalLatencyUS.Add(latency.Microseconds())
	c.counter(c.byModality, modality).Add(1)
	c.counter(c.bySeverity, severity).Add(1)
}

// RecordRejected counts one request rejected before scoring.
func (c *Collector) RecordRejected() {
	c.rejectedInputs.Add(1)
}

func (c *Collector) counter(m map[string]*atomic.Int64, key string) *atomic.Int64 {
	c.mu.RLock()
	ctr, ok := m[key]
	c.mu.RUnlock()
	if ok {
		return ctr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctr, ok = m[key]; ok {
		return ctr
	}
	ctr = new(atomic.Int64)
	m[key] = ctr
	return ctr
}

// Stats is a point-in-time snapshot of the collector.
type Stats struct {
	UptimeSeconds  int64            `json:"uptime_seconds"`
	TotalScans     int64            `json:"total_scans"`
	RejectedInputs int64            `json:"rejected_inputs"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	ByModality     map[string]int64 `json:"by_modality"`
	BySeverity     map[string]int64 `json:"by_severity"`
}

// Snapshot returns current counter values.
func (c *Collector) Snapshot() Stats {
	total := c.totalScans.Load()
	stats := Stats{
		UptimeSeconds:  int64(time.Since(c.start).Seconds()),
		TotalScans:     total,
		RejectedInputs: c.rejectedInputs.Load(),
		ByModality:     make(map[string]int64),
		BySeverity:     make(map[string]int64),
	}
	if total > 0 {
		stats.AvgLatencyMs = float64(c.totalLatencyUS.Load()) / float64(total) / 1000.0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.byModality {
		stats.ByModality[k] = v.Load()
	}
	for k, v := range c.bySeverity {
		stats.BySeverity[k] = v.Load()
	}
	return stats
}
