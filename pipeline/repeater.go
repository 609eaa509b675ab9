package pipeline

import (
	"math"

	"go.uber.org/zap"
)

const KindRepeater = "repeater"

// RepeaterConfig: Repeats extra clones per note, Interval their spacing in
// timing subdivisions, Decay the velocity multiplier applied per repeat.
type RepeaterConfig struct {
	Repeats  int
	Interval int
	Decay    float64
}

// Repeater emits each note command plus N clones at successive time offsets,
// echo style. NoteOffs repeat with the same offsets so every echoed NoteOn
// finds its release.
type Repeater struct {
	node
	cfg RepeaterConfig
}

func NewRepeater(log *zap.Logger) *Repeater {
	return &Repeater{
		node: newNode(log),
		cfg: RepeaterConfig{
			Repeats:  2,
			Interval: 12, // eighths
			Decay:    0.7,
		},
	}
}

func (r *Repeater) Kind() string       { return KindRepeater }
func (r *Repeater) Name() string       { return "Note Repeater" }
func (r *Repeater) Category() Category { return CategoryRhythm }

func (r *Repeater) Description() string {
	return "Echoes each note at successive time offsets"
}

func (r *Repeater) Fields() []Field {
	return []Field{
		{Key: "repeats", Label: "Repeats", Type: FieldNumber, Min: 0, Max: 16},
		{Key: "interval", Label: "Interval (divisions)", Type: FieldNumber, Min: 1, Max: 96},
		{Key: "decay", Label: "Velocity decay", Type: FieldNumber, Min: 0.1, Max: 1},
	}
}

func (r *Repeater) Config() map[string]any {
	return map[string]any{
		enabledKey: r.enabled,
		"repeats":  r.cfg.Repeats,
		"interval": r.cfg.Interval,
		"decay":    r.cfg.Decay,
	}
}

func (r *Repeater) SetConfig(key string, value any) {
	if r.setCommon(key, value) {
		return
	}
	cfg := r.cfg
	switch key {
	case "repeats":
		if v, ok := asInt(value); ok {
			cfg.Repeats = clampInt(v, 0, 16)
		} else {
			r.badConfig(KindRepeater, key, value)
		}
	case "interval":
		if v, ok := asInt(value); ok {
			cfg.Interval = clampInt(v, 1, 96)
		} else {
			r.badConfig(KindRepeater, key, value)
		}
	case "decay":
		if v, ok := asFloat(value); ok {
			cfg.Decay = clampFloat(v, 0.1, 1)
		} else {
			r.badConfig(KindRepeater, key, value)
		}
	}
	r.cfg = cfg
}

func (r *Repeater) Transform(in []Command, t Snapshot) []Command {
	if r.cfg.Repeats == 0 {
		return in
	}
	step := t.Divisions(float64(r.cfg.Interval))
	out := make([]Command, 0, len(in)*(r.cfg.Repeats+1))
	for _, c := range in {
		if !c.Kind.IsNote() {
			out = append(out, c)
			continue
		}
		out = append(out, c)
		for k := 1; k <= r.cfg.Repeats; k++ {
			clone := c
			clone.ScheduledAt += float64(k) * step
			if clone.EndAt > 0 {
				clone.EndAt += float64(k) * step
			}
			if clone.Kind == NoteOn {
				scaled := float64(clone.Velocity) * math.Pow(r.cfg.Decay, float64(k))
				clone.Velocity = clampMIDI(int(math.Round(scaled)))
			}
			out = append(out, clone)
		}
	}
	return out
}
