// Package throttle paces outgoing requests. The Fixed and Adaptive
// variants wrap a rate.Limiter as their permit source instead of
// hand-rolling a drip-fed semaphore; None has no permit source.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttler paces requests and, optionally, reacts to their outcomes.
type Throttler interface {
	// Wait blocks until the caller may send its next request.
	Wait(ctx context.Context) error

	// RecordResponse reports the HTTP status of a completed request.
	// Implementations that don't adapt may ignore it.
	RecordResponse(status int)
}

// None never blocks. It's the zero-throttling case: no rate limit was
// requested.
type None struct{}

func (None) Wait(ctx context.Context) error { return ctx.Err() }

func (None) RecordResponse(int) {}

// Fixed paces requests at a constant rate using rate.Limiter directly;
// it never adjusts itself based on response outcomes.
type Fixed struct {
	limiter *rate.Limiter
}

// NewFixed builds a Fixed throttler allowing rps requests per second,
// issuing one permit at a time with no burst allowance.
func NewFixed(rps float64) *Fixed {
	return &Fixed{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (f *Fixed) Wait(ctx context.Context) error { return f.limiter.Wait(ctx) }

func (f *Fixed) RecordResponse(int) {}

// AdaptiveConfig tunes the AIMD rate adjustment.
type AdaptiveConfig struct {
	// InitialRPS is the starting rate.
	InitialRPS float64
	// MaxRPS is the ceiling the rate never exceeds.
	MaxRPS float64
	// MinRPS is the floor the rate never drops below.
	MinRPS float64
	// IncreaseFactor multiplies the rate after a clean window.
	// Default: 1.1
	IncreaseFactor float64
	// DecreaseFactor multiplies the rate after a throttled window.
	// Default: 0.75
	DecreaseFactor float64
	// WindowSize is how far back RecordResponse samples are kept.
	// Default: 5s
	WindowSize time.Duration
	// AdjustmentInterval is the minimum time between rate changes.
	// Default: 1s
	AdjustmentInterval time.Duration
}

// DefaultAdaptiveConfig derives the standard adaptive tuning from an
// initial rate.
func DefaultAdaptiveConfig(initialRPS float64) AdaptiveConfig {
	return AdaptiveConfig{
		InitialRPS:         initialRPS,
		MaxRPS:             initialRPS * 5,
		MinRPS:             initialRPS * 0.1,
		IncreaseFactor:     1.1,
		DecreaseFactor:     0.75,
		WindowSize:         5 * time.Second,
		AdjustmentInterval: 1 * time.Second,
	}
}

type sample struct {
	at     time.Time
	status int
}

// Adaptive implements AIMD rate control: it backs off on 429s and
// creeps the rate back up during clean windows, clamped to
// [MinRPS, MaxRPS].
type Adaptive struct {
	cfg AdaptiveConfig

	mu             sync.Mutex
	limiter        *rate.Limiter
	currentRPS     float64
	recent         []sample
	consecutive429 int
	lastAdjustment time.Time
	now            func() time.Time
}

// NewAdaptive builds an Adaptive throttler from cfg, filling in
// defaults for zero fields.
func NewAdaptive(cfg AdaptiveConfig) *Adaptive {
	if cfg.IncreaseFactor == 0 {
		cfg.IncreaseFactor = 1.1
	}
	if cfg.DecreaseFactor == 0 {
		cfg.DecreaseFactor = 0.75
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 5 * time.Second
	}
	if cfg.AdjustmentInterval == 0 {
		cfg.AdjustmentInterval = 1 * time.Second
	}
	return &Adaptive{
		cfg:            cfg,
		limiter:        rate.NewLimiter(rate.Limit(cfg.InitialRPS), 1),
		currentRPS:     cfg.InitialRPS,
		lastAdjustment: time.Now(),
		now:            time.Now,
	}
}

func (a *Adaptive) Wait(ctx context.Context) error {
	a.mu.Lock()
	lim := a.limiter
	a.mu.Unlock()
	return lim.Wait(ctx)
}

// RecordResponse feeds status into the sliding window and, once per
// AdjustmentInterval, recomputes the rate: decrease when more than two
// 429s landed in the window or three-plus arrived back to back (with
// an extra 0.9^consecutive penalty once four or more arrived back to
// back), otherwise increase if the window saw at least one non-429
// response.
func (a *Adaptive) RecordResponse(status int) {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.recent = append(a.recent, sample{at: now, status: status})
	if status == 429 {
		a.consecutive429++
	} else {
		a.consecutive429 = 0
	}

	if now.Sub(a.lastAdjustment) < a.cfg.AdjustmentInterval {
		return
	}
	a.lastAdjustment = now

	windowStart := now.Add(-a.cfg.WindowSize)
	kept := a.recent[:0]
	rateLimited := 0
	for _, s := range a.recent {
		if s.at.Before(windowStart) {
			continue
		}
		kept = append(kept, s)
		if s.status == 429 {
			rateLimited++
		}
	}
	a.recent = kept

	rps := a.currentRPS
	switch {
	case rateLimited > 2 || a.consecutive429 > 2:
		rps *= a.cfg.DecreaseFactor
		if rps < a.cfg.MinRPS {
			rps = a.cfg.MinRPS
		}
		if a.consecutive429 > 3 {
			rps *= pow(0.9, a.consecutive429)
			if rps < a.cfg.MinRPS {
				rps = a.cfg.MinRPS
			}
		}
	case len(a.recent) > rateLimited:
		rps *= a.cfg.IncreaseFactor
		if rps > a.cfg.MaxRPS {
			rps = a.cfg.MaxRPS
		}
	}
	if rps < a.cfg.MinRPS {
		rps = a.cfg.MinRPS
	}
	if rps > a.cfg.MaxRPS {
		rps = a.cfg.MaxRPS
	}

	if rps != a.currentRPS {
		a.currentRPS = rps
		a.limiter.SetLimit(rate.Limit(rps))
	}
}

// CurrentRPS reports the throttler's present rate, for status surfaces.
func (a *Adaptive) CurrentRPS() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRPS
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
