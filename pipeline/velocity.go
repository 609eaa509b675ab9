package pipeline

import (
	"math"

	"go.uber.org/zap"
)

const KindVelocity = "velocity"

// VelocityConfig: velocity' = velocity*Scale + Offset, clamped to 0-127.
type VelocityConfig struct {
	Scale  float64
	Offset int
}

// Velocity scales and offsets NoteOn velocity. Raw MIDI range throughout;
// results clamp to 0-127.
type Velocity struct {
	node
	cfg VelocityConfig
}

func NewVelocity(log *zap.Logger) *Velocity {
	return &Velocity{
		node: newNode(log),
		cfg:  VelocityConfig{Scale: 1},
	}
}

func (v *Velocity) Kind() string       { return KindVelocity }
func (v *Velocity) Name() string       { return "Velocity Modifier" }
func (v *Velocity) Category() Category { return CategoryDynamics }

func (v *Velocity) Description() string {
	return "Scales and offsets note velocity"
}

func (v *Velocity) Fields() []Field {
	return []Field{
		{Key: "scale", Label: "Scale", Type: FieldNumber, Min: 0, Max: 4},
		{Key: "offset", Label: "Offset", Type: FieldNumber, Min: -127, Max: 127},
	}
}

func (v *Velocity) Config() map[string]any {
	return map[string]any{
		enabledKey: v.enabled,
		"scale":    v.cfg.Scale,
		"offset":   v.cfg.Offset,
	}
}

func (v *Velocity) SetConfig(key string, value any) {
	if v.setCommon(key, value) {
		return
	}
	cfg := v.cfg
	switch key {
	case "scale":
		if f, ok := asFloat(value); ok {
			cfg.Scale = clampFloat(f, 0, 4)
		} else {
			v.badConfig(KindVelocity, key, value)
		}
	case "offset":
		if n, ok := asInt(value); ok {
			cfg.Offset = clampInt(n, -127, 127)
		} else {
			v.badConfig(KindVelocity, key, value)
		}
	}
	v.cfg = cfg
}

func (v *Velocity) Transform(in []Command, t Snapshot) []Command {
	out := make([]Command, 0, len(in))
	for _, c := range in {
		if c.Kind == NoteOn {
			scaled := math.Round(float64(c.Velocity)*v.cfg.Scale) + float64(v.cfg.Offset)
			c.Velocity = clampMIDI(int(scaled))
		}
		out = append(out, c)
	}
	return out
}
