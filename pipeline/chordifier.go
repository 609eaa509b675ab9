package pipeline

import (
	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/theory"
)

const KindChordifier = "chordifier"

// ChordifierConfig picks the fixed shape stamped onto every note. Inversion
// rotates the chord array, first-inversion style.
type ChordifierConfig struct {
	Shape     string
	Inversion int
}

// Chordifier expands a single note into a fixed chord shape rooted on it,
// regardless of key. NoteOffs fan out over the same shape.
type Chordifier struct {
	node
	cfg     ChordifierConfig
	formula theory.Formula
	pool    []int
}

func NewChordifier(log *zap.Logger) *Chordifier {
	c := &Chordifier{
		node: newNode(log),
		cfg:  ChordifierConfig{Shape: "Major"},
		pool: theory.KeyboardPool(),
	}
	c.rebuild()
	return c
}

func (c *Chordifier) Kind() string       { return KindChordifier }
func (c *Chordifier) Name() string       { return "Chordifier" }
func (c *Chordifier) Category() Category { return CategoryHarmony }

func (c *Chordifier) Description() string {
	return "Stamps a fixed chord shape onto every note"
}

func (c *Chordifier) Fields() []Field {
	return []Field{
		{Key: "shape", Label: "Shape", Type: FieldSelect, Options: theory.ChordNames()},
		{Key: "inversion", Label: "Inversion", Type: FieldNumber, Min: 0, Max: 6},
	}
}

func (c *Chordifier) Config() map[string]any {
	return map[string]any{
		enabledKey:  c.enabled,
		"shape":     c.cfg.Shape,
		"inversion": c.cfg.Inversion,
	}
}

func (c *Chordifier) SetConfig(key string, value any) {
	if c.setCommon(key, value) {
		return
	}
	cfg := c.cfg
	switch key {
	case "shape":
		if v, ok := asString(value); ok {
			if _, known := theory.ChordFormula(v); known {
				cfg.Shape = v
			} else {
				c.badConfig(KindChordifier, key, value)
			}
		} else {
			c.badConfig(KindChordifier, key, value)
		}
	case "inversion":
		if v, ok := asInt(value); ok {
			cfg.Inversion = clampInt(v, 0, 6)
		} else {
			c.badConfig(KindChordifier, key, value)
		}
	}
	c.cfg = cfg
	c.rebuild()
}

func (c *Chordifier) rebuild() {
	formula, ok := theory.ChordFormula(c.cfg.Shape)
	if !ok {
		formula, _ = theory.ChordFormula("Major")
	}
	c.formula = formula
}

func (c *Chordifier) Transform(in []Command, t Snapshot) []Command {
	out := make([]Command, 0, len(in))
	for _, cmd := range in {
		if !cmd.Kind.IsNote() {
			out = append(out, cmd)
			continue
		}
		chord := theory.CreateChord(c.pool, c.formula, int(cmd.Note), 0, 0, true, true)
		chord = theory.InvertChord(chord, c.cfg.Inversion)
		out = append(out, fanNote(cmd, chord)...)
	}
	return out
}
