package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ErrUnknownKind is returned when no constructor is registered for a
// transformer kind. Preset import skips such entries and keeps going.
var ErrUnknownKind = errors.New("unknown transformer kind")

// Constructor builds a fresh transformer with default configuration.
type Constructor func(log *zap.Logger) Transformer

var registry = map[string]Constructor{}

// Register adds a constructor for a transformer kind. The built-in kinds
// register themselves; callers may add their own before importing presets.
// Re-registering a kind replaces the previous constructor.
func Register(kind string, ctor Constructor) {
	registry[kind] = ctor
}

// New builds a transformer of the given kind.
func New(kind string, log *zap.Logger) (Transformer, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ctor(log), nil
}

// Kinds returns every registered kind in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func init() {
	Register(KindQuantizer, func(log *zap.Logger) Transformer { return NewQuantizer(log) })
	Register(KindHarmonizer, func(log *zap.Logger) Transformer { return NewHarmonizer(log) })
	Register(KindChordifier, func(log *zap.Logger) Transformer { return NewChordifier(log) })
	Register(KindArpeggiator, func(log *zap.Logger) Transformer { return NewArpeggiator(log) })
	Register(KindRandomizer, func(log *zap.Logger) Transformer { return NewRandomizer(log) })
	Register(KindRepeater, func(log *zap.Logger) Transformer { return NewRepeater(log) })
	Register(KindDelay, func(log *zap.Logger) Transformer { return NewDelay(log) })
	Register(KindShortener, func(log *zap.Logger) Transformer { return NewShortener(log) })
	Register(KindVelocity, func(log *zap.Logger) Transformer { return NewVelocity(log) })
	Register(KindMicrotonal, func(log *zap.Logger) Transformer { return NewMicrotonal(log) })
	Register(KindMood, func(log *zap.Logger) Transformer { return NewMood(log) })
}
