package pipeline

import (
	"errors"
	"testing"

	"github.com/designerzen/harmoneasy-sub002/theory"
)

func testSnapshot() Snapshot {
	// 120 BPM: a quarter is 0.5s, one subdivision ~20.8ms.
	period := 60.0 / 120 / DivisionsPerQuarter
	return Snapshot{Now: 10, DivisionsElapsed: 480, BPM: 120, Period: period}
}

func testNoteOn(note, velocity uint8) Command {
	return Command{Kind: NoteOn, Note: note, Velocity: velocity, ScheduledAt: 10, Source: "test", Sequence: 1}
}

// panicky is a transformer that always panics; the manager must contain it.
type panicky struct{ node }

func (p *panicky) Kind() string                    { return "panicky" }
func (p *panicky) Name() string                    { return "Panicky" }
func (p *panicky) Description() string             { return "" }
func (p *panicky) Category() Category              { return CategoryRhythm }
func (p *panicky) Fields() []Field                 { return nil }
func (p *panicky) Config() map[string]any          { return map[string]any{} }
func (p *panicky) SetConfig(key string, value any) {}

func (p *panicky) Transform(in []Command, t Snapshot) []Command {
	panic("boom")
}

func TestChainIsLeftFold(t *testing.T) {
	snap := testSnapshot()

	chordify := func() Transformer { return NewChordifier(nil) } // fan-out x3 (Major)
	halve := func() Transformer {
		v := NewVelocity(nil)
		v.SetConfig("scale", 0.5)
		return v
	}

	ab := NewManager(nil)
	ab.SetAll([]Transformer{chordify(), halve()})
	ba := NewManager(nil)
	ba.SetAll([]Transformer{halve(), chordify()})

	first := ab.Transform([]Command{testNoteOn(60, 100)}, snap)
	second := ba.Transform([]Command{testNoteOn(60, 100)}, snap)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("fan-out counts = %d and %d, want 3 each", len(first), len(second))
	}
	for i := range first {
		if first[i].Velocity != 50 || second[i].Velocity != 50 {
			t.Errorf("velocity scaling must reach all fanned notes: %v vs %v", first, second)
		}
	}
}

func TestChainOrderIsNotCommutative(t *testing.T) {
	snap := testSnapshot()

	// Chordify-then-arpeggiate spreads the chord tones in time;
	// arpeggiate-then-chordify stamps the chord onto one already-placed
	// note, so every tone lands together.
	build := func(order []string) []Command {
		m := NewManager(nil)
		var ts []Transformer
		for _, kind := range order {
			tr, err := New(kind, nil)
			if err != nil {
				t.Fatal(err)
			}
			ts = append(ts, tr)
		}
		m.SetAll(ts)
		return m.Transform([]Command{testNoteOn(60, 100)}, snap)
	}

	spread := build([]string{KindChordifier, KindArpeggiator})
	stacked := build([]string{KindArpeggiator, KindChordifier})

	if len(spread) != 3 || len(stacked) != 3 {
		t.Fatalf("fan-out counts = %d and %d, want 3 each", len(spread), len(stacked))
	}
	if spread[0].ScheduledAt == spread[2].ScheduledAt {
		t.Errorf("chordify-then-arpeggiate left tones simultaneous: %v", spread)
	}
	if stacked[0].ScheduledAt != stacked[2].ScheduledAt {
		t.Errorf("arpeggiate-then-chordify spread tones apart: %v", stacked)
	}
}

func TestDisabledTransformerIsPassthrough(t *testing.T) {
	m := NewManager(nil)
	c := NewChordifier(nil)
	c.SetEnabled(false)
	m.Append(c)

	in := []Command{testNoteOn(60, 100)}
	out := m.Transform(in, testSnapshot())
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("disabled transformer altered commands: %v", out)
	}
}

func TestSecondQuantizerRejected(t *testing.T) {
	m := NewManager(nil)
	if err := m.Append(NewQuantizer(nil)); err != nil {
		t.Fatalf("first quantizer rejected: %v", err)
	}
	if err := m.Append(NewQuantizer(nil)); !errors.Is(err, ErrDuplicateQuantizer) {
		t.Errorf("second quantizer returned %v, want ErrDuplicateQuantizer", err)
	}
	if err := m.Append(NewVelocity(nil)); err != nil {
		t.Fatalf("velocity append rejected: %v", err)
	}

	count := 0
	for _, tr := range m.Transformers() {
		if tr.Kind() == KindQuantizer {
			count++
		}
	}
	if count != 1 {
		t.Errorf("chain holds %d quantizers, want 1", count)
	}
	if m.Len() != 2 {
		t.Errorf("chain length = %d, want 2", m.Len())
	}
}

func TestMoveOperations(t *testing.T) {
	m := NewManager(nil)
	a := NewVelocity(nil)
	b := NewDelay(nil)
	c := NewShortener(nil)
	m.SetAll([]Transformer{a, b, c})

	kinds := func() []string {
		var out []string
		for _, tr := range m.Transformers() {
			out = append(out, tr.Kind())
		}
		return out
	}

	m.MoveBefore(b)
	if got := kinds(); got[0] != KindDelay || got[1] != KindVelocity {
		t.Errorf("after MoveBefore: %v", got)
	}

	m.MoveBefore(b) // already first: no-op
	if got := kinds(); got[0] != KindDelay {
		t.Errorf("MoveBefore past the front moved something: %v", got)
	}

	m.MoveAfter(c) // already last: no-op
	if got := kinds(); got[2] != KindShortener {
		t.Errorf("MoveAfter past the end moved something: %v", got)
	}

	m.Remove(b)
	if m.Len() != 2 {
		t.Errorf("length after remove = %d, want 2", m.Len())
	}
	m.Remove(b) // already gone: no-op
	if m.Len() != 2 {
		t.Errorf("double remove changed length to %d", m.Len())
	}
}

func TestSetAllNotifiesOnce(t *testing.T) {
	m := NewManager(nil)
	calls := 0
	m.OnChange(func() { calls++ })

	m.SetAll([]Transformer{NewVelocity(nil), NewDelay(nil), NewShortener(nil)})
	if calls != 1 {
		t.Errorf("SetAll fired %d notifications, want 1 aggregate", calls)
	}

	m.Append(NewRepeater(nil))
	if calls != 2 {
		t.Errorf("Append fired %d total notifications, want 2", calls)
	}
}

func TestPanickingStageIsPassthrough(t *testing.T) {
	m := NewManager(nil)
	v := NewVelocity(nil)
	v.SetConfig("scale", 0.5)
	m.SetAll([]Transformer{&panicky{node: newNode(nil)}, v})

	out := m.Transform([]Command{testNoteOn(60, 100)}, testSnapshot())
	if len(out) != 1 {
		t.Fatalf("pipeline aborted: %v", out)
	}
	if out[0].Velocity != 50 {
		t.Errorf("stages after the panicking one did not run: velocity=%d", out[0].Velocity)
	}
}

func TestQuantisePolicyFromChain(t *testing.T) {
	m := NewManager(nil)
	if m.IsQuantised() || m.QuantiseFidelity() != 1 {
		t.Error("empty chain must not be quantised")
	}

	q := NewQuantizer(nil)
	q.SetConfig("fidelity", 12)
	q.SetConfig("singleVoice", true)
	m.Append(q)

	if !m.IsQuantised() || m.QuantiseFidelity() != 12 || !m.SingleVoice() {
		t.Errorf("policy = %v/%d/%v, want true/12/true",
			m.IsQuantised(), m.QuantiseFidelity(), m.SingleVoice())
	}

	q.SetEnabled(false)
	if m.IsQuantised() || m.QuantiseFidelity() != 1 {
		t.Error("disabled quantizer must not quantise")
	}
}

func TestConfigureIsOrderedAgainstTransform(t *testing.T) {
	m := NewManager(nil)
	h := NewHarmonizer(nil)
	m.Append(h)

	modes := theory.ModeNames()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			m.Transform([]Command{testNoteOn(60, 100)}, testSnapshot())
		}
	}()

	for i := 0; i < 500; i++ {
		m.Configure(h, "mode", modes[i%len(modes)])
		m.SetEnabled(h, i%2 == 0)
	}
	<-done
}

func TestConfigureSkipsNonMembers(t *testing.T) {
	m := NewManager(nil)
	inChain := NewVelocity(nil)
	outside := NewVelocity(nil)
	m.Append(inChain)

	notifications := 0
	m.OnChange(func() { notifications++ })

	m.Configure(outside, "scale", 2.0)
	m.SetEnabled(outside, false)
	if cfg := outside.Config(); cfg["scale"] != 1.0 || !outside.Enabled() {
		t.Errorf("non-member was touched: %v enabled=%v", cfg, outside.Enabled())
	}
	if notifications != 0 {
		t.Errorf("non-member edits notified %d times", notifications)
	}

	m.Configure(inChain, "scale", 2.0)
	m.SetEnabled(inChain, false)
	if cfg := inChain.Config(); cfg["scale"] != 2.0 || inChain.Enabled() {
		t.Errorf("member edit did not land: %v enabled=%v", cfg, inChain.Enabled())
	}
	if notifications != 2 {
		t.Errorf("member edits notified %d times, want 2", notifications)
	}
}
