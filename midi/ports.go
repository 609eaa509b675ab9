// Package midi holds the boundary adapters: raw note input from gomidi
// ports into pipeline commands, and released commands back out to MIDI
// senders.
package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// InputNames returns the names of all available MIDI input ports.
func InputNames() []string {
	var names []string
	for _, port := range gomidi.GetInPorts() {
		names = append(names, port.String())
	}
	return names
}

// OutputNames returns the names of all available MIDI output ports.
func OutputNames() []string {
	var names []string
	for _, port := range gomidi.GetOutPorts() {
		names = append(names, port.String())
	}
	return names
}

func findIn(name string) (drivers.In, error) {
	for _, port := range gomidi.GetInPorts() {
		if port.String() == name {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI input named %q", name)
}

func findOut(name string) (drivers.Out, error) {
	for _, port := range gomidi.GetOutPorts() {
		if port.String() == name {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI output named %q", name)
}
