// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - turns/turn_errors:  Completed and failed user turns
//   - tool_runs/failures: Tool executions and how many were rejected
//   - provider_errors:    Upstream transport failures
//
// For production, export these to Prometheus or similar.
package monitoring

import "sync/atomic"

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	turns          atomic.Int64
	turnErrors     atomic.Int64
	toolRuns       atomic.Int64
	toolFailures   atomic.Int64
	providerErrors atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// Metrics is the process-wide collector.
var Metrics = NewMetricsCollector()

// RecordTurn records one completed user turn.
func (mc *MetricsCollector) RecordTurn(success bool) {
	mc.turns.Add(1)
	if !success {
		mc.turnErrors.Add(1)
	}
}

// RecordToolRun records one tool execution.
func (mc *MetricsCollector) RecordToolRun(ok bool) {
	mc.toolRuns.Add(1)
	if !ok {
		mc.toolFailures.Add(1)
	}
}

// RecordProviderError records an upstream transport failure.
func (mc *MetricsCollector) RecordProviderError() {
	mc.providerErrors.Add(1)
}

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"turns":           mc.turns.Load(),
		"turn_errors":     mc.turnErrors.Load(),
		"tool_runs":       mc.toolRuns.Load(),
		"tool_failures":   mc.toolFailures.Load(),
		"provider_errors": mc.providerErrors.Load(),
	}
}
