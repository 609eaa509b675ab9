package clock

import (
	"context"
	"testing"
	"time"

	"github.com/designerzen/harmoneasy-sub002/pipeline"
)

func TestBPMClamped(t *testing.T) {
	c := New(1000, func(pipeline.Snapshot) {}, nil)
	if c.BPM() != MaxBPM {
		t.Errorf("bpm = %f, want clamped to %d", c.BPM(), MaxBPM)
	}
	c.SetBPM(5)
	if c.BPM() != MinBPM {
		t.Errorf("bpm = %f, want clamped to %d", c.BPM(), MinBPM)
	}
}

func TestSnapshotPeriod(t *testing.T) {
	c := New(120, func(pipeline.Snapshot) {}, nil)
	snap := c.Snapshot()
	want := 60.0 / 120 / pipeline.DivisionsPerQuarter
	if snap.Period != want {
		t.Errorf("period = %f, want %f", snap.Period, want)
	}
	if snap.BPM != 120 {
		t.Errorf("bpm = %f, want 120", snap.BPM)
	}
}

func TestTicksAreMonotonic(t *testing.T) {
	ticks := make(chan pipeline.Snapshot, 64)
	c := New(MaxBPM, func(s pipeline.Snapshot) { ticks <- s }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var prev pipeline.Snapshot
	for i := 0; i < 10; i++ {
		select {
		case s := <-ticks:
			if i > 0 {
				if s.DivisionsElapsed != prev.DivisionsElapsed+1 {
					t.Fatalf("divisions jumped from %d to %d", prev.DivisionsElapsed, s.DivisionsElapsed)
				}
				if s.Now < prev.Now {
					t.Fatalf("time went backwards: %f after %f", s.Now, prev.Now)
				}
			}
			prev = s
		case <-time.After(time.Second):
			t.Fatal("clock stopped ticking")
		}
	}
}

func TestNowContinuousAcrossTempoChange(t *testing.T) {
	c := New(MinBPM, func(pipeline.Snapshot) {}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	time.Sleep(300 * time.Millisecond)

	before := c.Now()
	c.SetBPM(MaxBPM)
	after := c.Now()
	if after < before {
		t.Fatalf("Now went backwards on tempo increase: %.4f -> %.4f", before, after)
	}
	if after-before > 0.05 {
		t.Fatalf("Now leapt forward on tempo increase: %.4f -> %.4f", before, after)
	}

	before = c.Now()
	c.SetBPM(MinBPM)
	after = c.Now()
	if after < before {
		t.Fatalf("Now went backwards on tempo decrease: %.4f -> %.4f", before, after)
	}
	if after-before > 0.05 {
		t.Fatalf("Now leapt forward on tempo decrease: %.4f -> %.4f", before, after)
	}
}

func TestTempoChangeKeepsDivisionCount(t *testing.T) {
	ticks := make(chan pipeline.Snapshot, 64)
	c := New(MaxBPM, func(s pipeline.Snapshot) { ticks <- s }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var last int64
	for i := 0; i < 5; i++ {
		s := <-ticks
		last = s.DivisionsElapsed
	}

	c.SetBPM(150)

	s := <-ticks
	if s.DivisionsElapsed < last {
		t.Errorf("division counter rewound from %d to %d on tempo change", last, s.DivisionsElapsed)
	}
	if s.BPM != 150 && s.BPM != MaxBPM {
		t.Errorf("unexpected bpm %f after change", s.BPM)
	}
}
