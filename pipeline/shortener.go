package pipeline

import "go.uber.org/zap"

const KindShortener = "shortener"

// ShortenerConfig: MaxDuration in timing subdivisions.
type ShortenerConfig struct {
	MaxDuration int
}

// Shortener clamps how long any note may sound, staccato style. A NoteOn
// with a known duration gets EndAt pulled in; one without gets EndAt set, so
// the scheduler releases it after the maximum.
type Shortener struct {
	node
	cfg ShortenerConfig
}

func NewShortener(log *zap.Logger) *Shortener {
	return &Shortener{
		node: newNode(log),
		cfg:  ShortenerConfig{MaxDuration: 6}, // a sixteenth
	}
}

func (s *Shortener) Kind() string       { return KindShortener }
func (s *Shortener) Name() string       { return "Note Shortener" }
func (s *Shortener) Category() Category { return CategoryRhythm }

func (s *Shortener) Description() string {
	return "Caps note duration at a maximum"
}

func (s *Shortener) Fields() []Field {
	return []Field{
		{Key: "maxDuration", Label: "Max duration (divisions)", Type: FieldNumber, Min: 1, Max: 192},
	}
}

func (s *Shortener) Config() map[string]any {
	return map[string]any{
		enabledKey:    s.enabled,
		"maxDuration": s.cfg.MaxDuration,
	}
}

func (s *Shortener) SetConfig(key string, value any) {
	if s.setCommon(key, value) {
		return
	}
	if key != "maxDuration" {
		return
	}
	if v, ok := asInt(value); ok {
		s.cfg = ShortenerConfig{MaxDuration: clampInt(v, 1, 192)}
	} else {
		s.badConfig(KindShortener, key, value)
	}
}

func (s *Shortener) Transform(in []Command, t Snapshot) []Command {
	max := t.Divisions(float64(s.cfg.MaxDuration))
	out := make([]Command, 0, len(in))
	for _, c := range in {
		if c.Kind == NoteOn {
			limit := c.ScheduledAt + max
			if c.EndAt == 0 || c.EndAt > limit {
				c.EndAt = limit
			}
		}
		out = append(out, c)
	}
	return out
}
