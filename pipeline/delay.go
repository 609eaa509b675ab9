package pipeline

import "go.uber.org/zap"

const KindDelay = "delay"

// DelayConfig: Offset in timing subdivisions.
type DelayConfig struct {
	Offset int
}

// Delay pushes every note command later by a fixed offset. A schedule-time
// transformer: it rewrites ScheduledAt and EndAt, never note identity.
type Delay struct {
	node
	cfg DelayConfig
}

func NewDelay(log *zap.Logger) *Delay {
	return &Delay{
		node: newNode(log),
		cfg:  DelayConfig{Offset: 24}, // one beat
	}
}

func (d *Delay) Kind() string       { return KindDelay }
func (d *Delay) Name() string       { return "Note Delay" }
func (d *Delay) Category() Category { return CategoryRhythm }

func (d *Delay) Description() string {
	return "Shifts notes later by a fixed offset"
}

func (d *Delay) Fields() []Field {
	return []Field{
		{Key: "offset", Label: "Offset (divisions)", Type: FieldNumber, Min: 0, Max: 192},
	}
}

func (d *Delay) Config() map[string]any {
	return map[string]any{
		enabledKey: d.enabled,
		"offset":   d.cfg.Offset,
	}
}

func (d *Delay) SetConfig(key string, value any) {
	if d.setCommon(key, value) {
		return
	}
	if key != "offset" {
		return
	}
	if v, ok := asInt(value); ok {
		d.cfg = DelayConfig{Offset: clampInt(v, 0, 192)}
	} else {
		d.badConfig(KindDelay, key, value)
	}
}

func (d *Delay) Transform(in []Command, t Snapshot) []Command {
	if d.cfg.Offset == 0 {
		return in
	}
	shift := t.Divisions(float64(d.cfg.Offset))
	out := make([]Command, 0, len(in))
	for _, c := range in {
		if c.Kind.IsNote() {
			c.ScheduledAt += shift
			if c.EndAt > 0 {
				c.EndAt += shift
			}
		}
		out = append(out, c)
	}
	return out
}
