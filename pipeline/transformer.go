package pipeline

import (
	"math"

	"go.uber.org/zap"
)

// Category groups transformers for the configuration surface.
type Category string

const (
	CategoryTuning   Category = "tuning"
	CategoryHarmony  Category = "harmony"
	CategoryRhythm   Category = "rhythm"
	CategoryDynamics Category = "dynamics"
)

// FieldType tells the configuration surface how to render a field.
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldSelect FieldType = "select"
)

// Field is a declarative descriptor for one configurable value. The core
// never renders these; an external surface does, and pushes edits back
// through SetConfig.
type Field struct {
	Key     string
	Label   string
	Type    FieldType
	Min     float64
	Max     float64
	Options []string // FieldSelect only
}

// Transformer is one stage of the command pipeline.
//
// Transform must not mutate the input list in place: stages that change
// commands copy first. It may return the input unchanged, a shorter list, or
// a longer one (fan-out). A disabled transformer is skipped by the manager
// entirely.
//
// SetConfig never fails: malformed values are clamped or ignored with a log
// line, and the transformer recomputes any derived caches afterwards.
type Transformer interface {
	Kind() string
	Name() string
	Description() string
	Category() Category

	Enabled() bool
	SetEnabled(bool)

	Fields() []Field
	Config() map[string]any
	SetConfig(key string, value any)

	Transform(in []Command, t Snapshot) []Command
}

// node carries the state every transformer shares: the enabled flag and the
// log channel for configuration and pipeline errors.
type node struct {
	enabled bool
	log     *zap.Logger
}

func newNode(log *zap.Logger) node {
	if log == nil {
		log = zap.NewNop()
	}
	return node{enabled: true, log: log}
}

func (n *node) Enabled() bool      { return n.enabled }
func (n *node) SetEnabled(on bool) { n.enabled = on }

// enabledField is the config entry every transformer exposes.
const enabledKey = "enabled"

// setCommon handles config keys shared by all transformers. Reports whether
// the key was consumed.
func (n *node) setCommon(key string, value any) bool {
	if key != enabledKey {
		return false
	}
	if on, ok := asBool(value); ok {
		n.enabled = on
	} else {
		n.log.Warn("ignoring bad config value", zap.String("key", key), zap.Any("value", value))
	}
	return true
}

func (n *node) badConfig(kind, key string, value any) {
	n.log.Warn("ignoring bad config value",
		zap.String("transformer", kind),
		zap.String("key", key),
		zap.Any("value", value))
}

// Config values arrive from JSON presets (where every number is a float64)
// or straight from Go callers. These coercions accept both.

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	}
	return 0, false
}

func asInt(value any) (int, bool) {
	f, ok := asFloat(value)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return int(math.Round(f)), true
}

func asBool(value any) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampMIDI clamps to the 0-127 MIDI value range.
func clampMIDI(v int) uint8 {
	return uint8(clampInt(v, 0, 127))
}

// fanNote expands one note command into one clone per chord tone, preserving
// source and sequence ids so downstream ordering and pairing still hold.
func fanNote(c Command, notes []int) []Command {
	out := make([]Command, 0, len(notes))
	for _, n := range notes {
		clone := c
		clone.Note = clampMIDI(n)
		out = append(out, clone)
	}
	return out
}
