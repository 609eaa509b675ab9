package midi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/pipeline"
	"github.com/designerzen/harmoneasy-sub002/scheduler"
)

// Session owns the live input and output connections and reacts to port
// events from the Watcher. When the configured port appears it is opened;
// when it goes away the connection is dropped. Empty port names mean
// "take the first one that shows up".
type Session struct {
	mu      sync.Mutex
	wantIn  string
	wantOut string
	channel uint8

	factory  *pipeline.Factory
	now      func() float64
	dispatch func([]pipeline.Command)
	attach   func(scheduler.Output)
	detach   func(scheduler.Output)

	in  *Input
	out *Output
	log *zap.Logger
}

// SessionConfig bundles the wiring a Session needs.
type SessionConfig struct {
	InputPort  string
	OutputPort string
	Channel    uint8

	Factory  *pipeline.Factory
	Now      func() float64
	Dispatch func([]pipeline.Command)
	Attach   func(scheduler.Output)
	Detach   func(scheduler.Output)
}

func NewSession(cfg SessionConfig, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		wantIn:   cfg.InputPort,
		wantOut:  cfg.OutputPort,
		channel:  cfg.Channel,
		factory:  cfg.Factory,
		now:      cfg.Now,
		dispatch: cfg.Dispatch,
		attach:   cfg.Attach,
		detach:   cfg.Detach,
		log:      log,
	}
}

// HandleEvent connects or disconnects ports as they come and go. The
// Watcher reports every existing port as connected on its first scan, so
// startup connection falls out of the same path.
func (s *Session) HandleEvent(e PortEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Type {
	case PortConnected:
		if e.IsIn {
			s.connectInput(e.Name)
		} else {
			s.connectOutput(e.Name)
		}
	case PortDisconnected:
		if e.IsIn && s.in != nil && s.in.Name() == e.Name {
			s.in.Close()
			s.in = nil
			s.log.Info("MIDI input lost", zap.String("port", e.Name))
		} else if !e.IsIn && s.out != nil && s.out.Name() == e.Name {
			if s.detach != nil {
				s.detach(s.out)
			}
			s.out.Close()
			s.out = nil
			s.log.Info("MIDI output lost", zap.String("port", e.Name))
		}
	}
}

func (s *Session) connectInput(name string) {
	if s.in != nil {
		return
	}
	if s.wantIn != "" && s.wantIn != name {
		return
	}
	in, err := OpenInput(name, s.factory, s.now, s.dispatch, s.log)
	if err != nil {
		s.log.Warn("cannot open MIDI input", zap.String("port", name), zap.Error(err))
		return
	}
	s.in = in
	s.log.Info("MIDI input connected", zap.String("port", name))
}

func (s *Session) connectOutput(name string) {
	if s.out != nil {
		return
	}
	if s.wantOut != "" && s.wantOut != name {
		return
	}
	out, err := OpenOutput(name, s.channel, s.log)
	if err != nil {
		s.log.Warn("cannot open MIDI output", zap.String("port", name), zap.Error(err))
		return
	}
	s.out = out
	if s.attach != nil {
		s.attach(out)
	}
	s.log.Info("MIDI output connected", zap.String("port", name))
}

// InputName returns the connected input port name, or "" when none.
func (s *Session) InputName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in == nil {
		return ""
	}
	return s.in.Name()
}

// OutputName returns the connected output port name, or "" when none.
func (s *Session) OutputName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return ""
	}
	return s.out.Name()
}

// Close drops both connections.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in != nil {
		s.in.Close()
		s.in = nil
	}
	if s.out != nil {
		if s.detach != nil {
			s.detach(s.out)
		}
		s.out.Close()
		s.out = nil
	}
}
