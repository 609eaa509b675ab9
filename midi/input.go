package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/pipeline"
)

// Input listens to one MIDI port and converts note messages into commands
// via the shared factory. Each message becomes a one-command batch handed to
// the dispatch callback, stamped with the clock's current time.
type Input struct {
	name     string
	stopFunc func()
	log      *zap.Logger
}

// OpenInput opens the named port and starts listening. now supplies the
// clock-domain timestamp for incoming events; dispatch receives each
// converted batch.
func OpenInput(name string, factory *pipeline.Factory, now func() float64, dispatch func([]pipeline.Command), log *zap.Logger) (*Input, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := findIn(name)
	if err != nil {
		return nil, err
	}

	in := &Input{name: name, log: log}

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		var channel, note, velocity, controller, value, program uint8
		var bend int16
		var abs uint16
		switch {
		case msg.GetNoteStart(&channel, &note, &velocity):
			dispatch([]pipeline.Command{factory.NoteOn(name, note, velocity, now())})
		case msg.GetNoteEnd(&channel, &note):
			// Covers both NoteOff and the running-status NoteOn at velocity 0.
			dispatch([]pipeline.Command{factory.NoteOff(name, note, now())})
		case msg.GetControlChange(&channel, &controller, &value):
			dispatch([]pipeline.Command{factory.ControlChange(name, controller, value, now())})
		case msg.GetPitchBend(&channel, &bend, &abs):
			dispatch([]pipeline.Command{factory.PitchBend(name, bend, now())})
		case msg.GetProgramChange(&channel, &program):
			dispatch([]pipeline.Command{factory.ProgramChange(name, program, now())})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", name, err)
	}
	in.stopFunc = stop

	log.Info("MIDI input opened", zap.String("port", name))
	return in, nil
}

// Name returns the port name.
func (in *Input) Name() string {
	return in.name
}

// Close stops listening. Safe to call more than once.
func (in *Input) Close() {
	if in.stopFunc != nil {
		in.stopFunc()
		in.stopFunc = nil
		in.log.Info("MIDI input closed", zap.String("port", in.name))
	}
}
