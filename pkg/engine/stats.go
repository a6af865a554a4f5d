package engine

import "sync/atomic"

// RunStats accumulates run-wide retry/drop counters that the throttler
// metrics don't cover, as queryable counters for the status surface
// and the persisted run summary.
type RunStats struct {
	TotalRequests               atomic.Int64
	TotalRetries                atomic.Int64
	TotalDroppedAfterExhaustion atomic.Int64
	TotalResults                atomic.Int64
}

// RunStatsSnapshot is a point-in-time copy of RunStats, safe to encode.
type RunStatsSnapshot struct {
	TotalRequests               int64
	TotalRetries                int64
	TotalDroppedAfterExhaustion int64
	TotalResults                int64
}

// Snapshot copies the current counter values.
func (s *RunStats) Snapshot() RunStatsSnapshot {
	return RunStatsSnapshot{
		TotalRequests:               s.TotalRequests.Load(),
		TotalRetries:                s.TotalRetries.Load(),
		TotalDroppedAfterExhaustion: s.TotalDroppedAfterExhaustion.Load(),
		TotalResults:                s.TotalResults.Load(),
	}
}
