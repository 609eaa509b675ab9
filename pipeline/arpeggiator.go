package pipeline

import (
	"sort"

	"go.uber.org/zap"
)

const KindArpeggiator = "arpeggiator"

// Arpeggiator directions.
const (
	DirectionUp       = "up"
	DirectionDown     = "down"
	DirectionAsPlayed = "asPlayed"
)

// ArpeggiatorConfig shapes the arpeggio. Rate is the step spacing in timing
// subdivisions; Gate is the sounding fraction of each step.
type ArpeggiatorConfig struct {
	Rate      int
	Direction string
	Gate      float64
}

// Arpeggiator re-sequences simultaneous NoteOns into a timed run: each note
// keeps its identity but gets a successive ScheduledAt offset and a gated
// EndAt, so a held chord plays as a line. The rewrite is pure scheduling;
// nothing is emitted immediately. NoteOffs and other kinds pass through
// untouched since EndAt already bounds each arpeggiated voice.
type Arpeggiator struct {
	node
	cfg ArpeggiatorConfig
}

func NewArpeggiator(log *zap.Logger) *Arpeggiator {
	return &Arpeggiator{
		node: newNode(log),
		cfg: ArpeggiatorConfig{
			Rate:      6, // sixteenths
			Direction: DirectionUp,
			Gate:      0.8,
		},
	}
}

func (a *Arpeggiator) Kind() string       { return KindArpeggiator }
func (a *Arpeggiator) Name() string       { return "Arpeggiator" }
func (a *Arpeggiator) Category() Category { return CategoryRhythm }

func (a *Arpeggiator) Description() string {
	return "Spreads simultaneous notes into a timed run"
}

func (a *Arpeggiator) Fields() []Field {
	return []Field{
		{Key: "rate", Label: "Step (divisions)", Type: FieldNumber, Min: 1, Max: 96},
		{Key: "direction", Label: "Direction", Type: FieldSelect,
			Options: []string{DirectionUp, DirectionDown, DirectionAsPlayed}},
		{Key: "gate", Label: "Gate", Type: FieldNumber, Min: 0.05, Max: 1},
	}
}

func (a *Arpeggiator) Config() map[string]any {
	return map[string]any{
		enabledKey:  a.enabled,
		"rate":      a.cfg.Rate,
		"direction": a.cfg.Direction,
		"gate":      a.cfg.Gate,
	}
}

func (a *Arpeggiator) SetConfig(key string, value any) {
	if a.setCommon(key, value) {
		return
	}
	cfg := a.cfg
	switch key {
	case "rate":
		if v, ok := asInt(value); ok {
			cfg.Rate = clampInt(v, 1, 96)
		} else {
			a.badConfig(KindArpeggiator, key, value)
		}
	case "direction":
		switch v, _ := asString(value); v {
		case DirectionUp, DirectionDown, DirectionAsPlayed:
			cfg.Direction = v
		default:
			a.badConfig(KindArpeggiator, key, value)
		}
	case "gate":
		if v, ok := asFloat(value); ok {
			cfg.Gate = clampFloat(v, 0.05, 1)
		} else {
			a.badConfig(KindArpeggiator, key, value)
		}
	}
	a.cfg = cfg
}

func (a *Arpeggiator) Transform(in []Command, t Snapshot) []Command {
	var ons []Command
	out := make([]Command, 0, len(in))
	for _, c := range in {
		if c.Kind == NoteOn {
			ons = append(ons, c)
			continue
		}
		out = append(out, c)
	}
	if len(ons) == 0 {
		return out
	}

	switch a.cfg.Direction {
	case DirectionUp:
		sort.SliceStable(ons, func(i, j int) bool { return ons[i].Note < ons[j].Note })
	case DirectionDown:
		sort.SliceStable(ons, func(i, j int) bool { return ons[i].Note > ons[j].Note })
	}

	step := t.Divisions(float64(a.cfg.Rate))
	for i, c := range ons {
		c.ScheduledAt += float64(i) * step
		c.EndAt = c.ScheduledAt + step*a.cfg.Gate
		out = append(out, c)
	}
	return out
}
