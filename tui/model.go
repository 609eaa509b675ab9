package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/clock"
	"github.com/designerzen/harmoneasy-sub002/config"
	"github.com/designerzen/harmoneasy-sub002/midi"
	"github.com/designerzen/harmoneasy-sub002/pipeline"
	"github.com/designerzen/harmoneasy-sub002/scheduler"
	"github.com/designerzen/harmoneasy-sub002/theme"
)

type mode int

const (
	modeNormal mode = iota
	modeAdd
)

type Model struct {
	Chain   *pipeline.Manager
	Sched   *scheduler.Scheduler
	Clock   *clock.Clock
	Session *midi.Session
	Watcher *midi.Watcher
	Theme   *theme.Theme
	Preset  string
	Log     *zap.Logger

	updates chan struct{}

	mode        mode
	cursor      int
	fieldCursor int
	addCursor   int
	status      string
	quitting    bool
}

type UpdateMsg struct{}

type PortMsg midi.PortEvent

type tickMsg time.Time

func NewModel(chain *pipeline.Manager, sched *scheduler.Scheduler, clk *clock.Clock, session *midi.Session, watcher *midi.Watcher, th *theme.Theme, preset string, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	updates := make(chan struct{}, 1)
	chain.OnChange(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	return Model{
		Chain:   chain,
		Sched:   sched,
		Clock:   clk,
		Session: session,
		Watcher: watcher,
		Theme:   th,
		Preset:  preset,
		Log:     log,
		updates: updates,
	}
}

func ListenForUpdates(updates chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return UpdateMsg{}
	}
}

func ListenForPorts(watcher *midi.Watcher) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-watcher.Events()
		if !ok {
			return nil
		}
		return PortMsg(event)
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.updates),
		ListenForPorts(m.Watcher),
		tick(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeAdd {
			return m.updateAdd(msg)
		}
		return m.updateNormal(msg)

	case UpdateMsg:
		m.clampCursor()
		return m, ListenForUpdates(m.updates)

	case PortMsg:
		m.Session.HandleEvent(midi.PortEvent(msg))
		return m, ListenForPorts(m.Watcher)

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.Sched.ClearNoteOnOff()
		return m, tea.Quit

	case "+", "=":
		m.Clock.SetBPM(m.Clock.BPM() + 5)

	case "-", "_":
		m.Clock.SetBPM(m.Clock.BPM() - 5)

	case "j", "down":
		if m.cursor < m.Chain.Len()-1 {
			m.cursor++
			m.fieldCursor = 0
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
			m.fieldCursor = 0
		}

	case "h", "left":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}

	case "l", "right":
		if t := m.selected(); t != nil && m.fieldCursor < len(t.Fields())-1 {
			m.fieldCursor++
		}

	case "[":
		m.adjustField(-1)

	case "]":
		m.adjustField(+1)

	case " ":
		if t := m.selected(); t != nil {
			m.Chain.SetEnabled(t, !t.Enabled())
		}

	case "J":
		if t := m.selected(); t != nil {
			m.Chain.MoveAfter(t)
			if m.cursor < m.Chain.Len()-1 {
				m.cursor++
			}
		}

	case "K":
		if t := m.selected(); t != nil {
			m.Chain.MoveBefore(t)
			if m.cursor > 0 {
				m.cursor--
			}
		}

	case "x":
		if t := m.selected(); t != nil {
			m.Chain.Remove(t)
			m.clampCursor()
		}

	case "a":
		m.mode = modeAdd
		m.addCursor = 0

	case "s":
		data, err := m.Chain.MarshalPreset()
		if err == nil {
			err = config.SavePreset(m.presetName(), data)
		}
		if err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
		} else {
			m.status = fmt.Sprintf("saved preset %q", m.presetName())
		}

	case "o":
		data, err := config.LoadPreset(m.presetName())
		if err == nil {
			err = m.Chain.UnmarshalPreset(data)
		}
		if err != nil {
			m.status = fmt.Sprintf("load failed: %v", err)
		} else {
			m.status = fmt.Sprintf("loaded preset %q", m.presetName())
			m.cursor = 0
			m.fieldCursor = 0
		}

	case "!":
		m.Sched.ClearNoteOnOff()
		m.status = "all notes off"
	}

	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	kinds := pipeline.Kinds()
	switch msg.String() {
	case "esc", "q":
		m.mode = modeNormal

	case "j", "down":
		if m.addCursor < len(kinds)-1 {
			m.addCursor++
		}

	case "k", "up":
		if m.addCursor > 0 {
			m.addCursor--
		}

	case "enter", " ":
		t, err := pipeline.New(kinds[m.addCursor], m.Log)
		if err == nil {
			if appendErr := m.Chain.Append(t); appendErr != nil {
				m.status = appendErr.Error()
			} else {
				m.cursor = m.Chain.Len() - 1
				m.fieldCursor = 0
			}
		}
		m.mode = modeNormal
	}

	return m, nil
}

func (m *Model) selected() pipeline.Transformer {
	ts := m.Chain.Transformers()
	if m.cursor < 0 || m.cursor >= len(ts) {
		return nil
	}
	return ts[m.cursor]
}

func (m *Model) clampCursor() {
	if n := m.Chain.Len(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// adjustField nudges the selected field. Numbers step by 1, or by 0.05 on
// narrow ranges. Bools toggle, selects cycle.
func (m *Model) adjustField(dir int) {
	t := m.selected()
	if t == nil {
		return
	}
	fields := t.Fields()
	if m.fieldCursor >= len(fields) {
		return
	}
	f := fields[m.fieldCursor]
	cfg := t.Config()

	switch f.Type {
	case pipeline.FieldBool:
		cur, _ := cfg[f.Key].(bool)
		m.Chain.Configure(t, f.Key, !cur)

	case pipeline.FieldSelect:
		cur, _ := cfg[f.Key].(string)
		idx := 0
		for i, opt := range f.Options {
			if opt == cur {
				idx = i
				break
			}
		}
		idx = (idx + dir + len(f.Options)) % len(f.Options)
		m.Chain.Configure(t, f.Key, f.Options[idx])

	default:
		step := 1.0
		if f.Max-f.Min <= 4 {
			step = 0.05
		}
		m.Chain.Configure(t, f.Key, asNumber(cfg[f.Key])+step*float64(dir))
	}
}

func asNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case uint8:
		return float64(n)
	}
	return 0
}

func (m Model) presetName() string {
	if m.Preset != "" {
		return m.Preset
	}
	return "default"
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor())
	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	snap := m.Clock.Snapshot()
	beat := int(snap.DivisionsElapsed) / pipeline.DivisionsPerQuarter

	inPort := m.Session.InputName()
	outPort := m.Session.OutputName()
	if inPort == "" {
		inPort = "(no input)"
	}
	if outPort == "" {
		outPort = "(no output)"
	}

	header := headerStyle.Render(fmt.Sprintf("harmoneasy  %3.0fbpm  beat:%04d", snap.BPM, beat))
	ports := dimStyle.Render(fmt.Sprintf("in: %s   out: %s   pending: %d", inPort, outPort, m.Sched.Pending()))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(ports)
	out.WriteString("\n\n")

	if m.mode == modeAdd {
		out.WriteString(m.viewAdd(cursorStyle, dimStyle))
	} else {
		out.WriteString(m.viewChain(cursorStyle, dimStyle, activeStyle))
	}

	out.WriteString("\n")
	help := "a:add  x:remove  space:toggle  j/k:select  J/K:reorder  h/l + [/]:edit  s/o:preset  +/-:tempo  !:panic  q:quit"
	if m.mode == modeAdd {
		help = "j/k:select  enter:add  esc:cancel"
	}
	out.WriteString(dimStyle.Render(help))

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(warnStyle.Render(m.status))
	}

	return out.String()
}

func (m Model) viewChain(cursorStyle, dimStyle, activeStyle lipgloss.Style) string {
	ts := m.Chain.Transformers()
	if len(ts) == 0 {
		return dimStyle.Render("  (empty chain, press a to add a transformer)") + "\n"
	}

	var out strings.Builder
	for i, t := range ts {
		prefix := "  "
		if i == m.cursor {
			prefix = string(m.Theme.Symbols.Cursor) + " "
		}

		state := string(m.Theme.Symbols.Disabled)
		if t.Enabled() {
			state = string(m.Theme.Symbols.Enabled)
		}
		if t.Kind() == pipeline.KindQuantizer {
			state = string(m.Theme.Symbols.Quantize)
		}

		line := fmt.Sprintf("%s%s %-14s %-9s %s", prefix, state, t.Name(), t.Category(), summarize(t))
		switch {
		case i == m.cursor:
			out.WriteString(cursorStyle.Render(line))
		case t.Enabled():
			out.WriteString(activeStyle.Render(line))
		default:
			out.WriteString(dimStyle.Render(line))
		}
		out.WriteString("\n")

		if i == m.cursor {
			out.WriteString(m.viewFields(t, dimStyle, cursorStyle))
		}
	}
	return out.String()
}

func (m Model) viewFields(t pipeline.Transformer, dimStyle, cursorStyle lipgloss.Style) string {
	fields := t.Fields()
	if len(fields) == 0 {
		return ""
	}
	cfg := t.Config()

	var out strings.Builder
	out.WriteString("      ")
	for i, f := range fields {
		cell := fmt.Sprintf("%s=%s", f.Label, formatValue(cfg[f.Key]))
		if i == m.fieldCursor {
			out.WriteString(cursorStyle.Render("[" + cell + "]"))
		} else {
			out.WriteString(dimStyle.Render(" " + cell + " "))
		}
		out.WriteString(" ")
	}
	out.WriteString("\n")
	return out.String()
}

func (m Model) viewAdd(cursorStyle, dimStyle lipgloss.Style) string {
	var out strings.Builder
	out.WriteString("Add transformer:\n")
	for i, kind := range pipeline.Kinds() {
		prefix := "  "
		if i == m.addCursor {
			prefix = string(m.Theme.Symbols.Cursor) + " "
		}
		line := prefix + kind
		if i == m.addCursor {
			out.WriteString(cursorStyle.Render(line))
		} else {
			out.WriteString(dimStyle.Render(line))
		}
		out.WriteString("\n")
	}
	return out.String()
}

// summarize renders a short key=value digest of a transformer's settings.
func summarize(t pipeline.Transformer) string {
	cfg := t.Config()
	var parts []string
	for _, f := range t.Fields() {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Key, formatValue(cfg[f.Key])))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	if f, ok := v.(float64); ok {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprintf("%v", v)
}
