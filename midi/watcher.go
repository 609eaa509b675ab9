package midi

import (
	"context"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

// PortEvent is emitted when MIDI ports appear or disappear.
type PortEvent struct {
	Type PortEventType
	Name string
	IsIn bool
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// Watcher polls for hot-plugged MIDI ports so configured devices can be
// opened whenever they show up.
type Watcher struct {
	mu       sync.Mutex
	seenIn   map[string]bool
	seenOut  map[string]bool
	events   chan PortEvent
	pollRate time.Duration
	log      *zap.Logger
}

// NewWatcher creates a watcher polling once a second.
func NewWatcher(log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		seenIn:   make(map[string]bool),
		seenOut:  make(map[string]bool),
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
		log:      log,
	}
}

// Events returns the connect/disconnect event channel.
func (w *Watcher) Events() <-chan PortEvent {
	return w.events
}

// Run polls until the context is cancelled. Blocking; run in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	w.scan()
	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	// Enumerate with a timeout: CoreMIDI can hang when the MIDI server is
	// wedged, and a stuck scan must not stall the caller forever.
	type ports struct {
		ins  []string
		outs []string
	}
	ch := make(chan ports, 1)
	go func() {
		var p ports
		for _, in := range gomidi.GetInPorts() {
			p.ins = append(p.ins, in.String())
		}
		for _, out := range gomidi.GetOutPorts() {
			p.outs = append(p.outs, out.String())
		}
		ch <- p
	}()

	var current ports
	select {
	case current = <-ch:
	case <-time.After(3 * time.Second):
		w.log.Warn("MIDI port scan timed out, skipping")
		return
	}

	w.mu.Lock()
	w.seenIn = w.diff(w.seenIn, current.ins, true)
	w.seenOut = w.diff(w.seenOut, current.outs, false)
	w.mu.Unlock()
}

// diff emits events for names that appeared or vanished and returns the new
// seen set. Caller holds the mutex.
func (w *Watcher) diff(seen map[string]bool, names []string, isIn bool) map[string]bool {
	next := make(map[string]bool, len(names))
	for _, name := range names {
		next[name] = true
		if !seen[name] {
			w.emit(PortEvent{Type: PortConnected, Name: name, IsIn: isIn})
		}
	}
	for name := range seen {
		if !next[name] {
			w.emit(PortEvent{Type: PortDisconnected, Name: name, IsIn: isIn})
		}
	}
	return next
}

func (w *Watcher) emit(e PortEvent) {
	select {
	case w.events <- e:
	default:
		// Consumer is behind; drop rather than block the scan.
	}
}
