// Package theory generates chord and scale note sets from semitone interval
// formulas. Everything here is pure: callers pass in a note pool and get a
// fresh slice back.
package theory

import "math"

// KeyboardPool returns the full MIDI note range 0-127 as a note pool.
func KeyboardPool() []int {
	pool := make([]int, 128)
	for i := range pool {
		pool[i] = i
	}
	return pool
}

// degreeStride is how far the formula walk advances per chord tone.
// Seven-degree scale formulas are walked in thirds (every other degree, the
// classic tertian stack); chord shapes already stack their intervals and are
// walked one degree at a time.
func degreeStride(formula Formula) int {
	if len(formula) == 7 {
		return 2
	}
	return 1
}

// CreateChord selects chord tones out of pool by walking formula.
//
// The walk starts rotation degrees into the formula and wraps with an octave
// lift per lap. offset positions the result within the pool (for a full
// keyboard pool it is simply the root note number). length defaults to
// min(len(formula), len(pool)) when zero or negative.
//
// With accumulate the voicing ascends: every tone after the first is lifted
// by octaves until it sits above the running pitch, except a tone that would
// land back on the starting pitch class, which is dropped an octave instead.
//
// With cutOff a tone whose pool index falls past the end of the pool is
// skipped outright. Without it the tone folds down by octaves until it fits,
// which can duplicate an earlier pitch. Note the asymmetry: accumulate wraps
// by octave shifting while cutOff drops. That is the observed behaviour of
// the range policy and is pinned by tests, not smoothed over.
func CreateChord(pool []int, formula Formula, offset, rotation, length int, cutOff, accumulate bool) []int {
	if len(formula) == 0 || len(pool) == 0 {
		return nil
	}
	if length <= 0 {
		length = len(formula)
		if len(pool) < length {
			length = len(pool)
		}
	}

	stride := degreeStride(formula)
	out := make([]int, 0, length)

	first := math.MinInt // semitone value of the first tone
	prev := math.MinInt  // running pitch for the ascending voicing

	for i := 0; i < length; i++ {
		degree := rotation + i*stride
		idx := degree % len(formula)
		lap := degree / len(formula)
		semis := formula[idx] + 12*lap

		if accumulate && first != math.MinInt {
			for semis <= prev {
				semis += 12
			}
			if mod12(semis) == mod12(first) && semis != first {
				semis -= 12
			}
		}
		if first == math.MinInt {
			first = semis
		}
		prev = semis

		pos := offset + semis
		if pos < 0 {
			continue
		}
		if pos >= len(pool) {
			if cutOff {
				continue
			}
			for pos >= len(pool) {
				pos -= 12
			}
			if pos < 0 {
				continue
			}
		}
		out = append(out, pool[pos])
	}
	return out
}

// FindRotationFromNote maps a played note to its degree within formula for
// the given root, comparing pitch classes. Returns -1 when the note is not a
// member of the scale; callers pick their own fallback, typically degree 0.
func FindRotationFromNote(noteNumber, rootNote int, formula Formula) int {
	pc := mod12(noteNumber - rootNote)
	for i, interval := range formula {
		if mod12(interval) == pc {
			return i
		}
	}
	return -1
}

// InvertChord rotates the chord array left by inversion positions (mod
// length). Pure array rotation: the pitch-class set is unchanged and no
// semitone values move.
func InvertChord(chord []int, inversion int) []int {
	n := len(chord)
	if n == 0 {
		return nil
	}
	inversion = ((inversion % n) + n) % n
	out := make([]int, 0, n)
	out = append(out, chord[inversion:]...)
	out = append(out, chord[:inversion]...)
	return out
}

func mod12(v int) int {
	return ((v % 12) + 12) % 12
}
