package pipeline

import "go.uber.org/zap"

const KindMicrotonal = "microtonal"

// bendRangeCents is the receiver's assumed pitch bend span: the standard
// +/-2 semitones mapped over the 14-bit range.
const bendRangeCents = 200.0

// MicrotonalConfig: Cents of detune applied to every note, -200..200.
type MicrotonalConfig struct {
	Cents int
}

// Microtonal detunes notes by emitting a PitchBend command immediately ahead
// of each NoteOn, and a bend reset after each NoteOff. The detune shares the
// note's scheduled time so the bend lands before the note sounds.
//
// TODO: per-pitch-class detune tables for non-equal temperaments.
type Microtonal struct {
	node
	cfg MicrotonalConfig
}

func NewMicrotonal(log *zap.Logger) *Microtonal {
	return &Microtonal{
		node: newNode(log),
		cfg:  MicrotonalConfig{Cents: 50}, // quarter tone up
	}
}

func (m *Microtonal) Kind() string       { return KindMicrotonal }
func (m *Microtonal) Name() string       { return "Microtonality" }
func (m *Microtonal) Category() Category { return CategoryTuning }

func (m *Microtonal) Description() string {
	return "Detunes notes by cents via pitch bend"
}

func (m *Microtonal) Fields() []Field {
	return []Field{
		{Key: "cents", Label: "Detune (cents)", Type: FieldNumber, Min: -200, Max: 200},
	}
}

func (m *Microtonal) Config() map[string]any {
	return map[string]any{
		enabledKey: m.enabled,
		"cents":    m.cfg.Cents,
	}
}

func (m *Microtonal) SetConfig(key string, value any) {
	if m.setCommon(key, value) {
		return
	}
	if key != "cents" {
		return
	}
	if v, ok := asInt(value); ok {
		m.cfg = MicrotonalConfig{Cents: clampInt(v, -200, 200)}
	} else {
		m.badConfig(KindMicrotonal, key, value)
	}
}

func (m *Microtonal) Transform(in []Command, t Snapshot) []Command {
	if m.cfg.Cents == 0 {
		return in
	}
	bend := int16(clampFloat(float64(m.cfg.Cents)*8192/bendRangeCents, -8192, 8191))
	out := make([]Command, 0, len(in)*2)
	for _, c := range in {
		switch c.Kind {
		case NoteOn:
			out = append(out, bendCommand(c, bend), c)
		case NoteOff:
			out = append(out, c, bendCommand(c, 0))
		default:
			out = append(out, c)
		}
	}
	return out
}

// bendCommand clones scheduling identity from c onto a PitchBend.
func bendCommand(c Command, bend int16) Command {
	return Command{
		Kind:        PitchBend,
		Bend:        bend,
		ScheduledAt: c.ScheduledAt,
		Source:      c.Source,
		Sequence:    c.Sequence,
	}
}
