package pipeline

import (
	"fmt"
	"sync/atomic"
)

// Kind discriminates what a Command does when it reaches an output.
type Kind uint8

const (
	NoteOn Kind = iota
	NoteOff
	ControlChange
	PitchBend
	ProgramChange
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "noteOn"
	case NoteOff:
		return "noteOff"
	case ControlChange:
		return "controlChange"
	case PitchBend:
		return "pitchBend"
	case ProgramChange:
		return "programChange"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsNote reports whether the kind is NoteOn or NoteOff.
func (k Kind) IsNote() bool {
	return k == NoteOn || k == NoteOff
}

// Command is the unit of work flowing through the pipeline. Commands are
// values: every stage receives a list and returns a new list, and fanning
// out means copying the struct and overwriting fields.
type Command struct {
	Kind     Kind
	Note     uint8 // 0-127
	Velocity uint8 // 0-127, meaningful for NoteOn

	Controller uint8 // ControlChange only
	Value      uint8 // ControlChange only
	Bend       int16 // PitchBend only, -8192..8191
	Program    uint8 // ProgramChange only

	ScheduledAt float64 // absolute seconds, same clock domain as the scheduler
	EndAt       float64 // optional, 0 when the duration is unknown

	Source   string // originating adapter
	Sequence uint64 // monotonic, for ordering and debugging
}

func (c Command) String() string {
	return fmt.Sprintf("%s note=%d vel=%d at=%.3f src=%s seq=%d",
		c.Kind, c.Note, c.Velocity, c.ScheduledAt, c.Source, c.Sequence)
}

// Factory stamps new commands with a monotonic sequence id. One factory per
// process; input adapters share it so sequence ids stay globally ordered.
type Factory struct {
	seq atomic.Uint64
}

// NoteOn creates a NoteOn command scheduled at the given time.
func (f *Factory) NoteOn(source string, note, velocity uint8, at float64) Command {
	return Command{
		Kind:        NoteOn,
		Note:        note,
		Velocity:    velocity,
		ScheduledAt: at,
		Source:      source,
		Sequence:    f.seq.Add(1),
	}
}

// NoteOff creates a NoteOff command scheduled at the given time.
func (f *Factory) NoteOff(source string, note uint8, at float64) Command {
	return Command{
		Kind:        NoteOff,
		Note:        note,
		ScheduledAt: at,
		Source:      source,
		Sequence:    f.seq.Add(1),
	}
}

// ControlChange creates a controller command scheduled at the given time.
func (f *Factory) ControlChange(source string, controller, value uint8, at float64) Command {
	return Command{
		Kind:        ControlChange,
		Controller:  controller,
		Value:       value,
		ScheduledAt: at,
		Source:      source,
		Sequence:    f.seq.Add(1),
	}
}

// PitchBend creates a pitch bend command scheduled at the given time.
func (f *Factory) PitchBend(source string, bend int16, at float64) Command {
	return Command{
		Kind:        PitchBend,
		Bend:        bend,
		ScheduledAt: at,
		Source:      source,
		Sequence:    f.seq.Add(1),
	}
}

// ProgramChange creates a program change command scheduled at the given time.
func (f *Factory) ProgramChange(source string, program uint8, at float64) Command {
	return Command{
		Kind:        ProgramChange,
		Program:     program,
		ScheduledAt: at,
		Source:      source,
		Sequence:    f.seq.Add(1),
	}
}
