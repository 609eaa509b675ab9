// Package scheduler buffers transformed commands and releases them on the
// timing grid. Commands go in whenever input arrives; they come out exactly
// once, in insertion order, on the tick their scheduled time has passed.
package scheduler

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/pipeline"
)

// DefaultAccumulatorLimit bounds how many not-yet-due commands a single
// release pass will scan past before giving up for this tick.
const DefaultAccumulatorLimit = 64

// Transform runs a command batch through the pipeline. Implementations may
// complete asynchronously (a worker, another process); done must be called
// exactly once. The default wraps a pipeline.Manager synchronously.
type Transform func(in []pipeline.Command, t pipeline.Snapshot, done func(out []pipeline.Command, err error))

// Scheduler owns the pending command queue. All state is guarded by one
// mutex: ticks arrive from the clock goroutine while dispatches arrive from
// input adapters, and async transform completions may land late.
type Scheduler struct {
	mu      sync.Mutex
	queue   []pipeline.Command
	pending map[uint64]struct{} // in-flight transform batches, keyed by first sequence id

	chain     *pipeline.Manager
	transform Transform
	outputs   []Output

	accumulatorLimit int
	hold             int // single-voice countdown, in ticks

	// delivered NoteOns awaiting their NoteOff, per note number
	active map[uint8]int

	log *zap.Logger
}

// New creates a scheduler releasing through the given pipeline. A nil logger
// disables logging.
func New(chain *pipeline.Manager, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		chain:            chain,
		pending:          make(map[uint64]struct{}),
		accumulatorLimit: DefaultAccumulatorLimit,
		active:           make(map[uint8]int),
		log:              log,
	}
	s.transform = func(in []pipeline.Command, t pipeline.Snapshot, done func([]pipeline.Command, error)) {
		done(chain.Transform(in, t), nil)
	}
	return s
}

// SetTransform replaces the transform boundary, e.g. with an asynchronous
// worker. Call before the clock starts.
func (s *Scheduler) SetTransform(fn Transform) {
	if fn != nil {
		s.transform = fn
	}
}

// SetAccumulatorLimit bounds per-tick scan cost. Values below 1 are ignored.
func (s *Scheduler) SetAccumulatorLimit(n int) {
	if n < 1 {
		return
	}
	s.mu.Lock()
	s.accumulatorLimit = n
	s.mu.Unlock()
}

// AddOutput registers an output adapter.
func (s *Scheduler) AddOutput(o Output) {
	s.mu.Lock()
	s.outputs = append(s.outputs, o)
	s.mu.Unlock()
}

// RemoveOutput unregisters an output adapter.
func (s *Scheduler) RemoveOutput(o Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.outputs {
		if existing == o {
			s.outputs = append(s.outputs[:i], s.outputs[i+1:]...)
			return
		}
	}
}

// Enqueue appends commands to the queue unconditionally, bypassing the
// pipeline. Dispatch is the transforming entry point.
func (s *Scheduler) Enqueue(cmds ...pipeline.Command) {
	if len(cmds) == 0 {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, cmds...)
	s.mu.Unlock()
}

// Pending returns the queue length.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dispatch runs a command batch through the transform boundary and enqueues
// the result once it resolves. A batch already in flight (same leading
// sequence id) is not dispatched twice. A failed transform falls back to
// enqueuing the untransformed input: the event is never lost.
//
// The chain consulted is the one current at call time; a result arriving
// after the chain has changed is still enqueued.
func (s *Scheduler) Dispatch(cmds []pipeline.Command, t pipeline.Snapshot) {
	if len(cmds) == 0 {
		return
	}
	batch := cmds[0].Sequence

	s.mu.Lock()
	if _, inFlight := s.pending[batch]; inFlight {
		s.mu.Unlock()
		s.log.Debug("transform already pending for batch", zap.Uint64("batch", batch))
		return
	}
	s.pending[batch] = struct{}{}
	s.mu.Unlock()

	s.transform(cmds, t, func(out []pipeline.Command, err error) {
		if err != nil {
			s.log.Warn("transform failed, enqueuing untransformed input",
				zap.Uint64("batch", batch), zap.Error(err))
			out = cmds
		}
		s.mu.Lock()
		delete(s.pending, batch)
		s.queue = append(s.queue, out...)
		s.mu.Unlock()
	})
}

// OnTick runs once per timing subdivision and returns the commands released
// to outputs this tick. The result is nil only when the grid suppressed the
// pass; a pass that ran and released nothing returns an empty slice.
//
// Without quantization every tick runs a release pass. With it, a pass runs
// only on grid-aligned ticks, and the single-voice policy additionally holds
// off for gridSize-1 ticks after each pass.
func (s *Scheduler) OnTick(t pipeline.Snapshot) []pipeline.Command {
	s.mu.Lock()
	if s.chain != nil && s.chain.IsQuantised() {
		grid := s.chain.QuantiseFidelity()
		if grid > 1 {
			if s.hold > 0 {
				s.hold--
				s.mu.Unlock()
				return nil
			}
			if t.DivisionsElapsed%int64(grid) != 0 {
				s.mu.Unlock()
				return nil
			}
			released := s.releasePass(t.Now)
			if s.chain.SingleVoice() {
				s.hold = grid - 1
			}
			s.mu.Unlock()
			s.deliver(released)
			return released
		}
	}
	released := s.releasePass(t.Now)
	s.mu.Unlock()
	s.deliver(released)
	return released
}

// releasePass extracts due commands in insertion order. Both the due and the
// retained subsets keep their relative order, and a command leaves the queue
// the moment it is released, so release is exactly-once. The scan stops
// after accumulatorLimit not-yet-due commands; whatever follows waits for
// the next tick. Caller holds the mutex.
func (s *Scheduler) releasePass(now float64) []pipeline.Command {
	released := make([]pipeline.Command, 0)
	kept := s.queue[:0]
	notDue := 0
	i := 0
	for ; i < len(s.queue); i++ {
		c := s.queue[i]
		if math.IsNaN(c.ScheduledAt) || c.ScheduledAt < 0 {
			s.log.Warn("dropping command with malformed scheduled time",
				zap.Float64("scheduledAt", c.ScheduledAt),
				zap.Uint64("sequence", c.Sequence))
			continue
		}
		if c.ScheduledAt <= now {
			released = append(released, c)
			continue
		}
		kept = append(kept, c)
		notDue++
		if notDue >= s.accumulatorLimit {
			i++
			break
		}
	}
	kept = append(kept, s.queue[i:]...)
	s.queue = kept
	return released
}

// deliver hands released commands to every output. NoteOn/NoteOff pairing is
// enforced here: an unmatched NoteOff is a no-op, not an error. A NoteOn
// carrying a known duration re-enqueues its own NoteOff at EndAt.
func (s *Scheduler) deliver(cmds []pipeline.Command) {
	if len(cmds) == 0 {
		return
	}
	var synthesized []pipeline.Command

	s.mu.Lock()
	outputs := append([]Output(nil), s.outputs...)
	for _, c := range cmds {
		switch c.Kind {
		case pipeline.NoteOn:
			s.active[c.Note]++
			if c.EndAt > c.ScheduledAt {
				off := c
				off.Kind = pipeline.NoteOff
				off.ScheduledAt = c.EndAt
				off.EndAt = 0
				synthesized = append(synthesized, off)
			}
		case pipeline.NoteOff:
			if s.active[c.Note] == 0 {
				s.log.Debug("unmatched noteOff", zap.Uint8("note", c.Note))
				continue
			}
			s.active[c.Note]--
		}
		for _, o := range outputs {
			send(o, c)
		}
	}
	s.queue = append(s.queue, synthesized...)
	s.mu.Unlock()
}

func send(o Output, c pipeline.Command) {
	switch c.Kind {
	case pipeline.NoteOn:
		o.NoteOn(c.Note, c.Velocity)
	case pipeline.NoteOff:
		o.NoteOff(c.Note)
	case pipeline.ControlChange:
		o.ControlChange(c.Controller, c.Value)
	case pipeline.PitchBend:
		o.PitchBend(c.Bend)
	case pipeline.ProgramChange:
		o.ProgramChange(c.Program)
	}
}

// ClearNoteOnOff removes pending NoteOn/NoteOff commands, leaving other
// kinds queued, and silences every live output. The all-notes-off kill
// switch.
func (s *Scheduler) ClearNoteOnOff() {
	s.mu.Lock()
	kept := s.queue[:0]
	for _, c := range s.queue {
		if !c.Kind.IsNote() {
			kept = append(kept, c)
		}
	}
	s.queue = kept
	s.active = make(map[uint8]int)
	outputs := append([]Output(nil), s.outputs...)
	s.mu.Unlock()

	for _, o := range outputs {
		o.Silence()
	}
}
