package pipeline

import (
	"sort"

	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/theory"
)

const KindMood = "mood"

// moodShape maps a mood to a chord colour and a velocity feel.
type moodShape struct {
	shape     string
	inversion int
	velocity  float64 // multiplier on the played velocity
}

var moods = map[string]moodShape{
	"happy":  {shape: "Major7", velocity: 1},
	"sad":    {shape: "Minor7", velocity: 0.8},
	"tense":  {shape: "Diminished7", velocity: 0.95},
	"dreamy": {shape: "Major9", inversion: 1, velocity: 0.7},
	"heroic": {shape: "Sus4", velocity: 1.1},
	"dark":   {shape: "Minor9", velocity: 0.85},
}

// MoodConfig: Mood names one of the preset chord colours.
type MoodConfig struct {
	Mood string
}

// Mood is the emoji-chord transformer: one knob, one feeling. Each note
// becomes a chord whose colour and dynamics match the selected mood.
type Mood struct {
	node
	cfg     MoodConfig
	formula theory.Formula
	shape   moodShape
	pool    []int
}

func NewMood(log *zap.Logger) *Mood {
	m := &Mood{
		node: newNode(log),
		cfg:  MoodConfig{Mood: "happy"},
		pool: theory.KeyboardPool(),
	}
	m.rebuild()
	return m
}

func (m *Mood) Kind() string       { return KindMood }
func (m *Mood) Name() string       { return "Mood" }
func (m *Mood) Category() Category { return CategoryHarmony }

func (m *Mood) Description() string {
	return "Plays every note as a chord matching a mood"
}

// MoodNames returns the available moods in sorted order.
func MoodNames() []string {
	names := make([]string, 0, len(moods))
	for name := range moods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Mood) Fields() []Field {
	return []Field{
		{Key: "mood", Label: "Mood", Type: FieldSelect, Options: MoodNames()},
	}
}

func (m *Mood) Config() map[string]any {
	return map[string]any{
		enabledKey: m.enabled,
		"mood":     m.cfg.Mood,
	}
}

func (m *Mood) SetConfig(key string, value any) {
	if m.setCommon(key, value) {
		return
	}
	if key != "mood" {
		return
	}
	if v, ok := asString(value); ok {
		if _, known := moods[v]; known {
			m.cfg = MoodConfig{Mood: v}
			m.rebuild()
			return
		}
	}
	m.badConfig(KindMood, key, value)
}

func (m *Mood) rebuild() {
	shape, ok := moods[m.cfg.Mood]
	if !ok {
		shape = moods["happy"]
	}
	m.shape = shape
	m.formula, _ = theory.ChordFormula(shape.shape)
}

func (m *Mood) Transform(in []Command, t Snapshot) []Command {
	out := make([]Command, 0, len(in))
	for _, c := range in {
		if !c.Kind.IsNote() {
			out = append(out, c)
			continue
		}
		chord := theory.CreateChord(m.pool, m.formula, int(c.Note), 0, 0, true, true)
		chord = theory.InvertChord(chord, m.shape.inversion)
		fanned := fanNote(c, chord)
		if c.Kind == NoteOn {
			for i := range fanned {
				fanned[i].Velocity = clampMIDI(int(float64(c.Velocity) * m.shape.velocity))
			}
		}
		out = append(out, fanned...)
	}
	return out
}
