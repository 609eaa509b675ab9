package pipeline

import (
	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/theory"
)

const KindHarmonizer = "harmonizer"

// HarmonizerConfig selects the scale chords are drawn from. Root is a pitch
// class 0-11, Mode a canonical mode name, Voices how many chord tones each
// note becomes.
type HarmonizerConfig struct {
	Root       int
	Mode       string
	Voices     int
	CutOff     bool
	Accumulate bool
}

// Harmonizer turns every incoming note into a diatonic chord built on it.
// The played note picks its own degree in the configured scale, so playing
// up the scale walks through the scale's chord qualities. NoteOffs fan out
// over the same chord members as the NoteOn did, keeping on/off pairing
// intact; if the scale changes while a note is held, the stranded voices are
// absorbed by the output boundary's unmatched-NoteOff rule.
type Harmonizer struct {
	node
	cfg   HarmonizerConfig
	scale theory.Formula // derived from cfg, rebuilt on config change
	pool  []int
}

func NewHarmonizer(log *zap.Logger) *Harmonizer {
	h := &Harmonizer{
		node: newNode(log),
		cfg: HarmonizerConfig{
			Mode:       "Ionian",
			Voices:     3,
			CutOff:     true,
			Accumulate: true,
		},
		pool: theory.KeyboardPool(),
	}
	h.rebuild()
	return h
}

func (h *Harmonizer) Kind() string       { return KindHarmonizer }
func (h *Harmonizer) Name() string       { return "Harmonizer" }
func (h *Harmonizer) Category() Category { return CategoryHarmony }

func (h *Harmonizer) Description() string {
	return "Expands each note into a chord from the configured scale"
}

func (h *Harmonizer) Fields() []Field {
	return []Field{
		{Key: "root", Label: "Root", Type: FieldNumber, Min: 0, Max: 11},
		{Key: "mode", Label: "Mode", Type: FieldSelect, Options: theory.ModeNames()},
		{Key: "voices", Label: "Voices", Type: FieldNumber, Min: 1, Max: 7},
		{Key: "cutOff", Label: "Cut off at range", Type: FieldBool},
		{Key: "accumulate", Label: "Ascending voicing", Type: FieldBool},
	}
}

func (h *Harmonizer) Config() map[string]any {
	return map[string]any{
		enabledKey:   h.enabled,
		"root":       h.cfg.Root,
		"mode":       h.cfg.Mode,
		"voices":     h.cfg.Voices,
		"cutOff":     h.cfg.CutOff,
		"accumulate": h.cfg.Accumulate,
	}
}

func (h *Harmonizer) SetConfig(key string, value any) {
	if h.setCommon(key, value) {
		return
	}
	cfg := h.cfg
	switch key {
	case "root":
		if v, ok := asInt(value); ok {
			cfg.Root = clampInt(v, 0, 11)
		} else {
			h.badConfig(KindHarmonizer, key, value)
		}
	case "mode":
		if v, ok := asString(value); ok {
			if _, known := theory.ModeFormula(v); known {
				cfg.Mode = v
			} else {
				h.badConfig(KindHarmonizer, key, value)
			}
		} else {
			h.badConfig(KindHarmonizer, key, value)
		}
	case "voices":
		if v, ok := asInt(value); ok {
			cfg.Voices = clampInt(v, 1, 7)
		} else {
			h.badConfig(KindHarmonizer, key, value)
		}
	case "cutOff":
		if v, ok := asBool(value); ok {
			cfg.CutOff = v
		} else {
			h.badConfig(KindHarmonizer, key, value)
		}
	case "accumulate":
		if v, ok := asBool(value); ok {
			cfg.Accumulate = v
		} else {
			h.badConfig(KindHarmonizer, key, value)
		}
	}
	h.cfg = cfg
	h.rebuild()
}

// rebuild recomputes the cached scale formula after a config change.
func (h *Harmonizer) rebuild() {
	scale, ok := theory.ModeFormula(h.cfg.Mode)
	if !ok {
		scale, _ = theory.ModeFormula("Ionian")
	}
	h.scale = scale
}

func (h *Harmonizer) Transform(in []Command, t Snapshot) []Command {
	out := make([]Command, 0, len(in))
	for _, c := range in {
		if !c.Kind.IsNote() {
			out = append(out, c)
			continue
		}
		out = append(out, fanNote(c, h.chordFor(int(c.Note)))...)
	}
	return out
}

func (h *Harmonizer) chordFor(note int) []int {
	rotation := theory.FindRotationFromNote(note, h.cfg.Root, h.scale)
	if rotation < 0 {
		// Chromatic note: fall back to a chord rooted on degree 0.
		rotation = 0
	}
	offset := note - h.scale[rotation]
	return theory.CreateChord(h.pool, h.scale, offset, rotation, h.cfg.Voices, h.cfg.CutOff, h.cfg.Accumulate)
}
