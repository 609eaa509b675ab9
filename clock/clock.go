// Package clock turns wall time into the timing grid the core consumes:
// 24 subdivisions per quarter note at the configured BPM. The scheduler and
// pipeline never read time themselves; they get Snapshots from here.
package clock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/pipeline"
)

const (
	MinBPM = 20
	MaxBPM = 300
)

// Clock emits one Snapshot per timing subdivision. Tick times are derived
// from the tick anchor, not from accumulated sleeps, so timing error never
// compounds; a late wakeup only delays that one tick.
//
// Now() counts seconds from Run and never moves backwards. A tempo change
// freezes the seconds elapsed so far and continues from there, and the
// in-flight division carries its remaining phase into the new period.
type Clock struct {
	mu  sync.Mutex
	bpm float64

	// Now() anchor: clock-domain seconds accumulated before epoch, plus
	// wall time since. epoch is zero until Run.
	epoch   time.Time
	elapsed float64

	// tick anchor: division tickDivs fires at tickBase; later divisions
	// follow at the current period.
	tickBase  time.Time
	tickDivs  int64
	divisions int64

	onTick func(pipeline.Snapshot)
	log    *zap.Logger
}

// New creates a clock at the given tempo. onTick runs on the clock's
// goroutine, once per subdivision; slow handlers delay later ticks.
func New(bpm float64, onTick func(pipeline.Snapshot), log *zap.Logger) *Clock {
	if log == nil {
		log = zap.NewNop()
	}
	return &Clock{
		bpm:    clampBPM(bpm),
		onTick: onTick,
		log:    log,
	}
}

// BPM returns the current tempo.
func (c *Clock) BPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// SetBPM changes tempo, clamped to 20-300. Elapsed seconds and the division
// counter both keep their values; only the period of future divisions
// changes. The division in flight fires after the fraction of it still
// outstanding, scaled to the new period.
func (c *Clock) SetBPM(bpm float64) {
	bpm = clampBPM(bpm)
	c.mu.Lock()
	defer c.mu.Unlock()
	if bpm == c.bpm {
		return
	}
	if !c.epoch.IsZero() {
		now := time.Now()

		// Freeze Now() at the change instant.
		c.elapsed += now.Sub(c.epoch).Seconds()
		c.epoch = now

		// Carry the in-flight division's remaining phase over.
		oldNext := c.nextTickLocked()
		remaining := oldNext.Sub(now).Seconds() / periodSeconds(c.bpm)
		if remaining < 0 {
			remaining = 0
		}
		if remaining > 1 {
			remaining = 1
		}
		c.tickDivs = c.divisions
		c.tickBase = now.Add(time.Duration(remaining * periodSeconds(bpm) * float64(time.Second)))
	}
	c.bpm = bpm
	c.log.Debug("tempo changed", zap.Float64("bpm", bpm))
}

// Now returns the current time in the clock's domain: seconds since Run
// started. Zero before the clock runs. Monotonic across tempo changes.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() float64 {
	if c.epoch.IsZero() {
		return 0
	}
	return c.elapsed + time.Since(c.epoch).Seconds()
}

// Snapshot returns the timer state as of now, for dispatches that happen
// between ticks.
func (c *Clock) Snapshot() pipeline.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Clock) snapshotLocked() pipeline.Snapshot {
	return pipeline.Snapshot{
		Now:              c.nowLocked(),
		DivisionsElapsed: c.divisions,
		BPM:              c.bpm,
		Period:           periodSeconds(c.bpm),
	}
}

// nextTickLocked returns the wall time the next division is due.
func (c *Clock) nextTickLocked() time.Time {
	offset := float64(c.divisions-c.tickDivs) * periodSeconds(c.bpm)
	return c.tickBase.Add(time.Duration(offset * float64(time.Second)))
}

// Run ticks until the context is cancelled. Blocking; run in a goroutine.
func (c *Clock) Run(ctx context.Context) {
	c.mu.Lock()
	now := time.Now()
	c.epoch = now
	c.elapsed = 0
	c.tickBase = now
	c.tickDivs = 0
	c.divisions = 0
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextTickLocked()
		c.mu.Unlock()

		if wait := time.Until(next); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		snap := c.snapshotLocked()
		c.divisions++
		c.mu.Unlock()

		c.onTick(snap)
	}
}

func periodSeconds(bpm float64) float64 {
	return 60.0 / bpm / pipeline.DivisionsPerQuarter
}

func clampBPM(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}
