package pipeline

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrDuplicateQuantizer is returned when an append would put a second
// quantizer marker in the chain.
var ErrDuplicateQuantizer = errors.New("chain already has a quantizer")

// Manager owns the ordered transformer chain. Construct one and pass it to
// whoever needs it; there is no package-level instance.
//
// Mutations arrive from the UI goroutine while Transform runs on the tick
// goroutine, so one mutex guards the chain, and it is held across the whole
// Transform fold. Transformer state is part of that contract: edits to a
// chain member's config or enabled flag go through Configure and SetEnabled,
// never through the transformer directly, so they hold the same lock the
// fold does.
type Manager struct {
	mu       sync.Mutex
	chain    []Transformer
	onChange func()
	muted    bool // suppress per-item notifications during SetAll
	log      *zap.Logger
}

// NewManager creates an empty pipeline. A nil logger disables logging.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log}
}

// OnChange registers the callback invoked synchronously after every mutating
// operation. One consumer; a later call replaces the earlier one.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Manager) notify() {
	if m.muted || m.onChange == nil {
		return
	}
	m.onChange()
}

// Transformers returns a copy of the chain in order.
func (m *Manager) Transformers() []Transformer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transformer(nil), m.chain...)
}

// Len returns the number of transformers in the chain.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chain)
}

// Append adds a transformer to the end of the chain. The chain holds at most
// one quantizer marker; a second one is rejected with ErrDuplicateQuantizer
// and the chain is unchanged.
func (m *Manager) Append(t Transformer) error {
	if t == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(t)
}

func (m *Manager) appendLocked(t Transformer) error {
	if t.Kind() == KindQuantizer && m.quantizerLocked() != nil {
		m.log.Warn("ignoring append", zap.Error(ErrDuplicateQuantizer))
		return ErrDuplicateQuantizer
	}
	m.chain = append(m.chain, t)
	m.notify()
	return nil
}

// Remove takes a transformer out of the chain. Unknown instances are a no-op.
func (m *Manager) Remove(t Transformer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(t)
	if idx < 0 {
		return
	}
	m.chain = append(m.chain[:idx], m.chain[idx+1:]...)
	m.notify()
}

// MoveBefore swaps a transformer one position earlier. Moving past the front
// is a no-op.
func (m *Manager) MoveBefore(t Transformer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(t)
	if idx <= 0 {
		return
	}
	m.chain[idx-1], m.chain[idx] = m.chain[idx], m.chain[idx-1]
	m.notify()
}

// MoveAfter swaps a transformer one position later. Moving past the end is a
// no-op.
func (m *Manager) MoveAfter(t Transformer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(t)
	if idx < 0 || idx >= len(m.chain)-1 {
		return
	}
	m.chain[idx], m.chain[idx+1] = m.chain[idx+1], m.chain[idx]
	m.notify()
}

// SetAll atomically replaces the chain: clear, append each, then a single
// aggregate notification.
func (m *Manager) SetAll(ts []Transformer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = true
	m.chain = m.chain[:0]
	for _, t := range ts {
		if t == nil {
			continue
		}
		m.appendLocked(t)
	}
	m.muted = false
	m.notify()
}

// Configure pushes one config value to a chain member under the chain lock,
// keeping the write ordered against any in-flight Transform. Instances not
// in the chain are a no-op; configure those directly before appending.
func (m *Manager) Configure(t Transformer, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(t) < 0 {
		return
	}
	t.SetConfig(key, value)
	m.notify()
}

// SetEnabled flips a chain member's enabled flag under the chain lock.
// Instances not in the chain are a no-op.
func (m *Manager) SetEnabled(t Transformer, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(t) < 0 {
		return
	}
	t.SetEnabled(on)
	m.notify()
}

func (m *Manager) indexOf(t Transformer) int {
	for i, existing := range m.chain {
		if existing == t {
			return i
		}
	}
	return -1
}

// Transform runs commands through every enabled transformer in chain order:
// a left fold, so order matters and is not commutative. A stage that panics
// is logged and treated as passthrough for this batch; the clock must keep
// moving. The chain lock is held throughout, serializing the fold against
// Configure and SetEnabled.
func (m *Manager) Transform(in []Command, t Snapshot) []Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := in
	for _, tr := range m.chain {
		if !tr.Enabled() {
			continue
		}
		out = m.runStage(tr, out, t)
	}
	return out
}

func (m *Manager) runStage(tr Transformer, in []Command, t Snapshot) (out []Command) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("transformer panicked, passing commands through",
				zap.String("transformer", tr.Kind()),
				zap.Any("panic", r))
			out = in
		}
	}()
	return tr.Transform(in, t)
}

func (m *Manager) quantizerLocked() *Quantizer {
	for _, t := range m.chain {
		if q, ok := t.(*Quantizer); ok {
			return q
		}
	}
	return nil
}

// IsQuantised reports whether an enabled quantizer marker sits in the chain.
// The marker itself is passthrough; the scheduler enforces the grid.
func (m *Manager) IsQuantised() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.quantizerLocked()
	return q != nil && q.Enabled()
}

// QuantiseFidelity returns the grid size in timing subdivisions, or 1 when
// no quantizer is active.
func (m *Manager) QuantiseFidelity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.quantizerLocked()
	if q == nil || !q.Enabled() {
		return 1
	}
	return q.cfg.Fidelity
}

// SingleVoice reports whether the single-voice-per-grid-point policy is on.
func (m *Manager) SingleVoice() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.quantizerLocked()
	return q != nil && q.Enabled() && q.cfg.SingleVoice
}
