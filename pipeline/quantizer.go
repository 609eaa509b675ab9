package pipeline

import "go.uber.org/zap"

const KindQuantizer = "quantizer"

// QuantizerConfig holds the timing grid policy. Fidelity is the grid size in
// timing subdivisions: 6 is a sixteenth note at 24 subdivisions per quarter.
type QuantizerConfig struct {
	Fidelity    int
	SingleVoice bool
}

// Quantizer is a marker: its Transform is passthrough, and the scheduler
// reads the grid policy off the chain. Quantization is a scheduling-time
// decision, not a per-command rewrite, so the marker carries configuration
// and nothing else.
type Quantizer struct {
	node
	cfg QuantizerConfig
}

func NewQuantizer(log *zap.Logger) *Quantizer {
	return &Quantizer{
		node: newNode(log),
		cfg:  QuantizerConfig{Fidelity: 6},
	}
}

func (q *Quantizer) Kind() string       { return KindQuantizer }
func (q *Quantizer) Name() string       { return "Quantizer" }
func (q *Quantizer) Category() Category { return CategoryRhythm }

func (q *Quantizer) Description() string {
	return "Snaps command release to the timing grid"
}

func (q *Quantizer) Fields() []Field {
	return []Field{
		{Key: "fidelity", Label: "Grid size", Type: FieldNumber, Min: 1, Max: 96},
		{Key: "singleVoice", Label: "One voice per grid point", Type: FieldBool},
	}
}

func (q *Quantizer) Config() map[string]any {
	return map[string]any{
		enabledKey:    q.enabled,
		"fidelity":    q.cfg.Fidelity,
		"singleVoice": q.cfg.SingleVoice,
	}
}

func (q *Quantizer) SetConfig(key string, value any) {
	if q.setCommon(key, value) {
		return
	}
	cfg := q.cfg
	switch key {
	case "fidelity":
		if v, ok := asInt(value); ok {
			cfg.Fidelity = clampInt(v, 1, 96)
		} else {
			q.badConfig(KindQuantizer, key, value)
		}
	case "singleVoice":
		if v, ok := asBool(value); ok {
			cfg.SingleVoice = v
		} else {
			q.badConfig(KindQuantizer, key, value)
		}
	}
	q.cfg = cfg
}

// Fidelity returns the grid size in subdivisions.
func (q *Quantizer) Fidelity() int { return q.cfg.Fidelity }

// SingleVoice reports the one-voice-per-grid-point policy.
func (q *Quantizer) SingleVoice() bool { return q.cfg.SingleVoice }

func (q *Quantizer) Transform(in []Command, t Snapshot) []Command {
	return in
}
