package scheduler

// Output receives released commands. Implementations are MIDI senders,
// synthesizers, notation renderers; the scheduler calls them synchronously
// from the tick handler, so they must not block.
type Output interface {
	NoteOn(note, velocity uint8)
	NoteOff(note uint8)
	ControlChange(controller, value uint8)
	PitchBend(bend int16)
	ProgramChange(program uint8)

	// Silence stops everything sounding immediately, the kill switch path.
	Silence()
}
