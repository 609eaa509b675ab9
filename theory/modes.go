package theory

import "sort"

// Formula is an ordered list of semitone offsets from a root note.
type Formula []int

// The seven diatonic modes, Ionian through Locrian.
var modeFormulas = map[string]Formula{
	"Ionian":     {0, 2, 4, 5, 7, 9, 11},
	"Dorian":     {0, 2, 3, 5, 7, 9, 10},
	"Phrygian":   {0, 1, 3, 5, 7, 8, 10},
	"Lydian":     {0, 2, 4, 6, 7, 9, 11},
	"Mixolydian": {0, 2, 4, 5, 7, 9, 10},
	"Aeolian":    {0, 2, 3, 5, 7, 8, 10},
	"Locrian":    {0, 1, 3, 5, 6, 8, 10},
}

// Fixed chord shapes. Unlike mode formulas these already stack their
// intervals, so they are walked degree by degree when building a chord.
var chordFormulas = map[string]Formula{
	"Major":           {0, 4, 7},
	"Minor":           {0, 3, 7},
	"Diminished":      {0, 3, 6},
	"Augmented":       {0, 4, 8},
	"Sus2":            {0, 2, 7},
	"Sus4":            {0, 5, 7},
	"Major7":          {0, 4, 7, 11},
	"Minor7":          {0, 3, 7, 10},
	"Dominant7":       {0, 4, 7, 10},
	"Diminished7":     {0, 3, 6, 9},
	"Major9":          {0, 4, 7, 11, 14},
	"Minor9":          {0, 3, 7, 10, 14},
	"Power":           {0, 7},
	"PentatonicMajor": {0, 2, 4, 7, 9},
	"PentatonicMinor": {0, 3, 5, 7, 10},
	"Blues":           {0, 3, 5, 6, 7, 10},
}

// ModeFormula looks up a mode by its canonical name. Exact match only.
func ModeFormula(name string) (Formula, bool) {
	f, ok := modeFormulas[name]
	if !ok {
		return nil, false
	}
	return append(Formula(nil), f...), true
}

// ChordFormula looks up a chord shape by its canonical name. Exact match only.
func ChordFormula(name string) (Formula, bool) {
	f, ok := chordFormulas[name]
	if !ok {
		return nil, false
	}
	return append(Formula(nil), f...), true
}

// NameOfFormula reverse-looks-up a formula, checking modes first, then chord
// shapes. The comparison is exact: same length, same offsets, same order.
func NameOfFormula(f Formula) (string, bool) {
	for _, table := range []map[string]Formula{modeFormulas, chordFormulas} {
		for name, known := range table {
			if formulasEqual(known, f) {
				return name, true
			}
		}
	}
	return "", false
}

func formulasEqual(a, b Formula) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ModeNames returns every mode name in sorted order.
func ModeNames() []string {
	names := make([]string, 0, len(modeFormulas))
	for name := range modeFormulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChordNames returns every chord shape name in sorted order.
func ChordNames() []string {
	names := make([]string, 0, len(chordFormulas))
	for name := range chordFormulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
