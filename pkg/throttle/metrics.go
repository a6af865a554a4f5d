package throttle

import (
	"context"
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of a Metrics-wrapped throttler's
// behavior, suitable for a status endpoint.
type Metrics struct {
	CurrentRPS    float64
	PeakRPS       float64
	AverageRPS    float64
	TotalRequests uint64
	Total429s     uint64
	UptimeSeconds uint64
}

// WithMetrics wraps a Throttler and tracks request/429 counters and a
// windowed current-RPS figure on top of it, without changing its pacing
// decisions.
type WithMetrics struct {
	inner      Throttler
	windowSize time.Duration
	startTime  time.Time
	now        func() time.Time

	mu            sync.Mutex
	currentRPS    float64
	peakRPS       float64
	totalRequests uint64
	total429s     uint64
	recent        []sample
}

// DefaultMetricsWindow is how far back the current-RPS figure looks.
const DefaultMetricsWindow = 10 * time.Second

// NewWithMetrics wraps inner with request/429 counters over the
// default 10s window.
func NewWithMetrics(inner Throttler) *WithMetrics {
	return NewWithMetricsWindow(inner, DefaultMetricsWindow)
}

// NewWithMetricsWindow wraps inner with a custom current-RPS window.
func NewWithMetricsWindow(inner Throttler, windowSize time.Duration) *WithMetrics {
	return &WithMetrics{
		inner:      inner,
		windowSize: windowSize,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

func (m *WithMetrics) Wait(ctx context.Context) error {
	if err := m.inner.Wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.totalRequests++
	m.mu.Unlock()
	return nil
}

func (m *WithMetrics) RecordResponse(status int) {
	now := m.now()

	m.mu.Lock()
	if status == 429 {
		m.total429s++
	}
	m.recent = append(m.recent, sample{at: now, status: status})
	m.updateCurrentRPSLocked(now)
	m.mu.Unlock()

	m.inner.RecordResponse(status)
}

func (m *WithMetrics) updateCurrentRPSLocked(now time.Time) {
	if len(m.recent) == 0 {
		return
	}
	windowStart := now.Add(-m.windowSize)
	kept := m.recent[:0]
	for _, s := range m.recent {
		if !s.at.Before(windowStart) {
			kept = append(kept, s)
		}
	}
	m.recent = kept

	rps := float64(len(m.recent)) / m.windowSize.Seconds()
	m.currentRPS = rps
	if rps > m.peakRPS {
		m.peakRPS = rps
	}
}

// Snapshot reports the current metrics.
func (m *WithMetrics) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.now().Sub(m.startTime).Seconds()
	avg := 0.0
	if elapsed > 0 {
		avg = float64(m.totalRequests) / elapsed
	}
	return Metrics{
		CurrentRPS:    m.currentRPS,
		PeakRPS:       m.peakRPS,
		AverageRPS:    avg,
		TotalRequests: m.totalRequests,
		Total429s:     m.total429s,
		UptimeSeconds: uint64(elapsed),
	}
}
