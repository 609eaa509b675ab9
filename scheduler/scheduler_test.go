package scheduler

import (
	"errors"
	"math"
	"testing"

	"github.com/designerzen/harmoneasy-sub002/pipeline"
)

// recorder captures output calls for assertions.
type recorder struct {
	ons      []uint8
	offs     []uint8
	bends    []int16
	silenced int
}

func (r *recorder) NoteOn(note, velocity uint8)         { r.ons = append(r.ons, note) }
func (r *recorder) NoteOff(note uint8)                  { r.offs = append(r.offs, note) }
func (r *recorder) ControlChange(controller, val uint8) {}
func (r *recorder) PitchBend(bend int16)                { r.bends = append(r.bends, bend) }
func (r *recorder) ProgramChange(program uint8)         {}
func (r *recorder) Silence()                            { r.silenced++ }

func snap(tick int64, now float64) pipeline.Snapshot {
	return pipeline.Snapshot{Now: now, DivisionsElapsed: tick, BPM: 120, Period: 60.0 / 120 / pipeline.DivisionsPerQuarter}
}

func newTestScheduler() (*Scheduler, *pipeline.Manager) {
	chain := pipeline.NewManager(nil)
	return New(chain, nil), chain
}

func noteOn(seq uint64, note uint8, at float64) pipeline.Command {
	return pipeline.Command{Kind: pipeline.NoteOn, Note: note, Velocity: 100, ScheduledAt: at, Sequence: seq}
}

func TestReleaseExactlyOnce(t *testing.T) {
	s, _ := newTestScheduler()

	const n = 50
	for i := 0; i < n; i++ {
		s.Enqueue(noteOn(uint64(i+1), uint8(i%128), float64(i)*0.01))
	}

	total := 0
	for tick := int64(0); s.Pending() > 0 && tick < 100; tick++ {
		total += len(s.OnTick(snap(tick, float64(tick)*0.01)))
	}
	if total != n {
		t.Errorf("released %d commands, want exactly %d", total, n)
	}
	if s.Pending() != 0 {
		t.Errorf("queue not drained, %d left", s.Pending())
	}
}

func TestReleasePreservesRelativeOrder(t *testing.T) {
	s, _ := newTestScheduler()

	// Interleave due and future commands; relative order within each subset
	// must survive the pass.
	s.Enqueue(
		noteOn(1, 10, 0),
		noteOn(2, 11, 99),
		noteOn(3, 12, 0),
		noteOn(4, 13, 99),
		noteOn(5, 14, 0),
	)

	released := s.OnTick(snap(0, 1))
	if len(released) != 3 {
		t.Fatalf("released %d, want 3", len(released))
	}
	for i, want := range []uint64{1, 3, 5} {
		if released[i].Sequence != want {
			t.Errorf("released[%d].Sequence = %d, want %d", i, released[i].Sequence, want)
		}
	}

	later := s.OnTick(snap(1, 100))
	for i, want := range []uint64{2, 4} {
		if later[i].Sequence != want {
			t.Errorf("retained order broken: later[%d].Sequence = %d, want %d", i, later[i].Sequence, want)
		}
	}
}

func TestQuantizeGrid(t *testing.T) {
	s, chain := newTestScheduler()
	q := pipeline.NewQuantizer(nil)
	q.SetConfig("fidelity", 4)
	q.SetConfig("singleVoice", true)
	chain.Append(q)

	var passTicks []int64
	for tick := int64(0); tick < 16; tick++ {
		s.Enqueue(noteOn(uint64(tick+1), 60, 0))
		if released := s.OnTick(snap(tick, float64(tick))); released != nil {
			passTicks = append(passTicks, tick)
		}
	}

	want := []int64{0, 4, 8, 12}
	if len(passTicks) != len(want) {
		t.Fatalf("release passes at %v, want %v", passTicks, want)
	}
	for i := range want {
		if passTicks[i] != want[i] {
			t.Fatalf("release passes at %v, want %v", passTicks, want)
		}
	}
}

func TestAccumulatorLimitBoundsScan(t *testing.T) {
	s, _ := newTestScheduler()
	s.SetAccumulatorLimit(2)

	// Two future commands ahead of a due one: the scan stops before
	// reaching the due command, which stays queued for the next tick.
	s.Enqueue(
		noteOn(1, 10, 99),
		noteOn(2, 11, 99),
		noteOn(3, 12, 0),
	)

	if released := s.OnTick(snap(0, 1)); len(released) != 0 {
		t.Errorf("released %d commands past the accumulator limit", len(released))
	}
	if s.Pending() != 3 {
		t.Errorf("queue = %d, want all 3 retained", s.Pending())
	}

	// Next tick the due command is within reach... still behind two
	// not-yet-due entries, so it needs the limit raised to get out.
	s.SetAccumulatorLimit(10)
	if released := s.OnTick(snap(1, 1)); len(released) != 1 || released[0].Sequence != 3 {
		t.Errorf("released = %v, want just sequence 3", released)
	}
}

func TestUnmatchedNoteOffIsNoOp(t *testing.T) {
	s, _ := newTestScheduler()
	out := &recorder{}
	s.AddOutput(out)

	s.Enqueue(pipeline.Command{Kind: pipeline.NoteOff, Note: 60, ScheduledAt: 0, Sequence: 1})
	s.OnTick(snap(0, 1))

	if len(out.offs) != 0 {
		t.Errorf("unmatched noteOff reached the output: %v", out.offs)
	}

	// A matched pair goes through.
	s.Enqueue(noteOn(2, 60, 0))
	s.Enqueue(pipeline.Command{Kind: pipeline.NoteOff, Note: 60, ScheduledAt: 0, Sequence: 3})
	s.OnTick(snap(1, 1))
	if len(out.ons) != 1 || len(out.offs) != 1 {
		t.Errorf("matched pair delivered ons=%v offs=%v", out.ons, out.offs)
	}
}

func TestNoteOnWithDurationSynthesizesNoteOff(t *testing.T) {
	s, _ := newTestScheduler()
	out := &recorder{}
	s.AddOutput(out)

	on := noteOn(1, 72, 0)
	on.EndAt = 0.5
	s.Enqueue(on)

	s.OnTick(snap(0, 0.1))
	if len(out.ons) != 1 || len(out.offs) != 0 {
		t.Fatalf("after noteOn: ons=%v offs=%v", out.ons, out.offs)
	}

	s.OnTick(snap(1, 0.6))
	if len(out.offs) != 1 || out.offs[0] != 72 {
		t.Errorf("synthesized noteOff = %v, want [72]", out.offs)
	}
}

func TestClearNoteOnOff(t *testing.T) {
	s, _ := newTestScheduler()
	out := &recorder{}
	s.AddOutput(out)

	s.Enqueue(
		noteOn(1, 60, 99),
		pipeline.Command{Kind: pipeline.ControlChange, Controller: 1, Value: 64, ScheduledAt: 99, Sequence: 2},
		pipeline.Command{Kind: pipeline.NoteOff, Note: 60, ScheduledAt: 99, Sequence: 3},
	)

	s.ClearNoteOnOff()

	if s.Pending() != 1 {
		t.Errorf("queue = %d, want only the control change retained", s.Pending())
	}
	if out.silenced != 1 {
		t.Errorf("silenced %d times, want 1", out.silenced)
	}
}

func TestMalformedScheduledAtDropped(t *testing.T) {
	s, _ := newTestScheduler()

	s.Enqueue(
		pipeline.Command{Kind: pipeline.NoteOn, Note: 60, ScheduledAt: math.NaN(), Sequence: 1},
		pipeline.Command{Kind: pipeline.NoteOn, Note: 61, ScheduledAt: -1, Sequence: 2},
		noteOn(3, 62, 0),
	)

	released := s.OnTick(snap(0, 1))
	if len(released) != 1 || released[0].Sequence != 3 {
		t.Errorf("released = %v, want only the well-formed command", released)
	}
	if s.Pending() != 0 {
		t.Errorf("malformed commands still queued: %d", s.Pending())
	}
}

func TestDispatchRunsChain(t *testing.T) {
	s, chain := newTestScheduler()
	v := pipeline.NewVelocity(nil)
	v.SetConfig("scale", 0.5)
	chain.Append(v)

	s.Dispatch([]pipeline.Command{noteOn(1, 60, 0)}, snap(0, 0))

	released := s.OnTick(snap(0, 1))
	if len(released) != 1 || released[0].Velocity != 50 {
		t.Errorf("released = %v, want one note at velocity 50", released)
	}
}

func TestDispatchFailureFallsBackToInput(t *testing.T) {
	s, _ := newTestScheduler()
	s.SetTransform(func(in []pipeline.Command, _ pipeline.Snapshot, done func([]pipeline.Command, error)) {
		done(nil, errors.New("worker gone"))
	})

	s.Dispatch([]pipeline.Command{noteOn(7, 60, 0)}, snap(0, 0))

	released := s.OnTick(snap(0, 1))
	if len(released) != 1 || released[0].Sequence != 7 {
		t.Errorf("released = %v, want the untransformed input", released)
	}
}

func TestDispatchGuardsPendingBatches(t *testing.T) {
	s, _ := newTestScheduler()

	var completions []func([]pipeline.Command, error)
	s.SetTransform(func(in []pipeline.Command, _ pipeline.Snapshot, done func([]pipeline.Command, error)) {
		completions = append(completions, func(out []pipeline.Command, err error) { done(in, nil) })
	})

	batch := []pipeline.Command{noteOn(5, 60, 0)}
	s.Dispatch(batch, snap(0, 0))
	s.Dispatch(batch, snap(0, 0)) // same batch still pending, must not double-enqueue

	if len(completions) != 1 {
		t.Fatalf("transform invoked %d times, want 1", len(completions))
	}
	completions[0](nil, nil)

	if s.Pending() != 1 {
		t.Errorf("queue = %d, want the batch enqueued once", s.Pending())
	}

	// Resolved batches may be dispatched again.
	s.Dispatch(batch, snap(0, 0))
	if len(completions) != 2 {
		t.Errorf("transform invoked %d times after resolution, want 2", len(completions))
	}
}

func TestLateTransformResultStillEnqueued(t *testing.T) {
	s, chain := newTestScheduler()

	var finish func()
	s.SetTransform(func(in []pipeline.Command, t pipeline.Snapshot, done func([]pipeline.Command, error)) {
		finish = func() { done(chain.Transform(in, t), nil) }
	})

	s.Dispatch([]pipeline.Command{noteOn(9, 60, 0)}, snap(0, 0))

	// The chain changes while the transform is in flight; the stale result
	// is still enqueued when it lands.
	chain.Append(pipeline.NewVelocity(nil))
	finish()

	if s.Pending() != 1 {
		t.Errorf("late result not enqueued, queue = %d", s.Pending())
	}
}

func TestOnTickDistinguishesSuppressedFromEmptyPass(t *testing.T) {
	s, chain := newTestScheduler()
	q := pipeline.NewQuantizer(nil)
	q.SetConfig("fidelity", 4)
	chain.Append(q)

	// Grid-aligned tick over an empty queue: the pass ran, released
	// nothing, and says so with an empty non-nil result.
	if released := s.OnTick(snap(0, 0)); released == nil {
		t.Error("ran-but-empty pass returned nil")
	} else if len(released) != 0 {
		t.Errorf("empty queue released %v", released)
	}

	// Off-grid tick: suppressed, nil.
	if released := s.OnTick(snap(1, 0.01)); released != nil {
		t.Errorf("suppressed pass returned %v, want nil", released)
	}
}
