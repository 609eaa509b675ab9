package pipeline

import (
	"math/rand"

	"go.uber.org/zap"
)

const KindRandomizer = "randomizer"

// RandomizerConfig bounds the perturbation. NoteRange and VelocityRange are
// plus/minus semitone and velocity spans; Probability is the per-note chance
// of perturbing at all. Seed makes runs reproducible.
type RandomizerConfig struct {
	NoteRange     int
	VelocityRange int
	Probability   float64
	Seed          int64
}

// Randomizer perturbs note number and velocity within configured bounds.
// The pitch offset chosen for a NoteOn is remembered and replayed onto its
// NoteOff, so pairing survives the rewrite. Randomness comes from a seeded
// source so tests are deterministic.
type Randomizer struct {
	node
	cfg RandomizerConfig
	rng *rand.Rand

	// live note map: original note -> perturbed note
	held map[uint8]uint8
}

func NewRandomizer(log *zap.Logger) *Randomizer {
	r := &Randomizer{
		node: newNode(log),
		cfg: RandomizerConfig{
			NoteRange:     0,
			VelocityRange: 16,
			Probability:   1,
			Seed:          1,
		},
		held: make(map[uint8]uint8),
	}
	r.rebuild()
	return r
}

func (r *Randomizer) Kind() string       { return KindRandomizer }
func (r *Randomizer) Name() string       { return "Randomizer" }
func (r *Randomizer) Category() Category { return CategoryDynamics }

func (r *Randomizer) Description() string {
	return "Humanizes pitch and velocity within bounds"
}

func (r *Randomizer) Fields() []Field {
	return []Field{
		{Key: "noteRange", Label: "Pitch range (semitones)", Type: FieldNumber, Min: 0, Max: 24},
		{Key: "velocityRange", Label: "Velocity range", Type: FieldNumber, Min: 0, Max: 64},
		{Key: "probability", Label: "Probability", Type: FieldNumber, Min: 0, Max: 1},
		{Key: "seed", Label: "Seed", Type: FieldNumber, Min: 0, Max: 1 << 30},
	}
}

func (r *Randomizer) Config() map[string]any {
	return map[string]any{
		enabledKey:      r.enabled,
		"noteRange":     r.cfg.NoteRange,
		"velocityRange": r.cfg.VelocityRange,
		"probability":   r.cfg.Probability,
		"seed":          r.cfg.Seed,
	}
}

func (r *Randomizer) SetConfig(key string, value any) {
	if r.setCommon(key, value) {
		return
	}
	cfg := r.cfg
	switch key {
	case "noteRange":
		if v, ok := asInt(value); ok {
			cfg.NoteRange = clampInt(v, 0, 24)
		} else {
			r.badConfig(KindRandomizer, key, value)
		}
	case "velocityRange":
		if v, ok := asInt(value); ok {
			cfg.VelocityRange = clampInt(v, 0, 64)
		} else {
			r.badConfig(KindRandomizer, key, value)
		}
	case "probability":
		if v, ok := asFloat(value); ok {
			cfg.Probability = clampFloat(v, 0, 1)
		} else {
			r.badConfig(KindRandomizer, key, value)
		}
	case "seed":
		if v, ok := asInt(value); ok {
			cfg.Seed = int64(v)
		} else {
			r.badConfig(KindRandomizer, key, value)
		}
	}
	r.cfg = cfg
	r.rebuild()
}

// rebuild reseeds the random source whenever config changes.
func (r *Randomizer) rebuild() {
	r.rng = rand.New(rand.NewSource(r.cfg.Seed))
}

func (r *Randomizer) Transform(in []Command, t Snapshot) []Command {
	out := make([]Command, 0, len(in))
	for _, c := range in {
		switch c.Kind {
		case NoteOn:
			if r.cfg.Probability < 1 && r.rng.Float64() >= r.cfg.Probability {
				out = append(out, c)
				continue
			}
			perturbed := c
			perturbed.Note = clampMIDI(int(c.Note) + r.span(r.cfg.NoteRange))
			perturbed.Velocity = clampMIDI(int(c.Velocity) + r.span(r.cfg.VelocityRange))
			if perturbed.Note != c.Note {
				r.held[c.Note] = perturbed.Note
			}
			out = append(out, perturbed)
		case NoteOff:
			if moved, ok := r.held[c.Note]; ok {
				delete(r.held, c.Note)
				c.Note = moved
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// span returns a uniform offset in [-n, n].
func (r *Randomizer) span(n int) int {
	if n <= 0 {
		return 0
	}
	return r.rng.Intn(2*n+1) - n
}
