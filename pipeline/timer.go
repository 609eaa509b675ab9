package pipeline

// DivisionsPerQuarter is the resolution of the timing grid: 24 subdivisions
// per quarter note, matching MIDI clock.
const DivisionsPerQuarter = 24

// Snapshot is the timer's view of "now", handed to every transform call and
// every scheduler tick. The core never reads a clock itself.
type Snapshot struct {
	Now              float64 // monotonic seconds
	DivisionsElapsed int64   // subdivisions since the clock started
	BPM              float64
	Period           float64 // seconds per subdivision
}

// Divisions returns the wall-clock span of n subdivisions in seconds.
func (s Snapshot) Divisions(n float64) float64 {
	return s.Period * n
}
