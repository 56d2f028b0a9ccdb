// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for registry and metadata monitoring.
// Exposes counters and gauges in a thread-safe map with dynamic registration.

package control

import (
	"sync"
	"time"
)

// Metric names published by the owner registry.
const (
	MetricOwnersCreated   = "owners.created"
	MetricOwnersDestroyed = "owners.destroyed"
	MetricOwnersLive      = "owners.live"
	MetricEntriesEvicted  = "metadata.evicted"
	MetricEntriesRemoved  = "metadata.removed_on_teardown"
	MetricSweeps          = "metadata.sweeps"
	MetricTeardownErrors  = "owners.teardown_errors"
)

// MetricsRegistry holds counters and gauges.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a gauge.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments an integer counter, creating it at zero. A non-integer
// value already stored under key is replaced.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	cur, _ := mr.metrics[key].(int64)
	mr.metrics[key] = cur + delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Counter reads an integer counter; missing counters read zero.
func (mr *MetricsRegistry) Counter(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, _ := mr.metrics[key].(int64)
	return v
}

// Updated returns the time of the last write.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
