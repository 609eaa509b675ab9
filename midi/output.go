package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/scheduler"
)

// allNotesOff is the channel-mode controller that silences a receiver.
const allNotesOff = 123

// Output sends released commands to one MIDI port on one channel. It
// implements scheduler.Output.
type Output struct {
	name    string
	channel uint8
	mu      sync.Mutex
	send    func(gomidi.Message) error
	log     *zap.Logger
}

var _ scheduler.Output = (*Output)(nil)

// OpenOutput opens the named port for sending on the given MIDI channel
// (0-15).
func OpenOutput(name string, channel uint8, log *zap.Logger) (*Output, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := findOut(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", name, err)
	}
	log.Info("MIDI output opened", zap.String("port", name), zap.Uint8("channel", channel))
	return &Output{name: name, channel: channel & 0x0f, send: send, log: log}, nil
}

// Name returns the port name.
func (o *Output) Name() string {
	return o.name
}

func (o *Output) transmit(msg gomidi.Message) {
	o.mu.Lock()
	send := o.send
	o.mu.Unlock()
	if send == nil {
		return
	}
	if err := send(msg); err != nil {
		o.log.Warn("MIDI send failed", zap.String("port", o.name), zap.Error(err))
	}
}

func (o *Output) NoteOn(note, velocity uint8) {
	o.transmit(gomidi.NoteOn(o.channel, note, velocity))
}

func (o *Output) NoteOff(note uint8) {
	o.transmit(gomidi.NoteOff(o.channel, note))
}

func (o *Output) ControlChange(controller, value uint8) {
	o.transmit(gomidi.ControlChange(o.channel, controller, value))
}

func (o *Output) PitchBend(bend int16) {
	o.transmit(gomidi.Pitchbend(o.channel, bend))
}

func (o *Output) ProgramChange(program uint8) {
	o.transmit(gomidi.ProgramChange(o.channel, program))
}

// Silence sends all-notes-off, the kill switch path.
func (o *Output) Silence() {
	o.transmit(gomidi.ControlChange(o.channel, allNotesOff, 0))
}

// Close drops the sender. Later calls become no-ops.
func (o *Output) Close() {
	o.mu.Lock()
	o.send = nil
	o.mu.Unlock()
	o.log.Info("MIDI output closed", zap.String("port", o.name))
}
