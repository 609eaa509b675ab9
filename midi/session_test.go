package midi

import "testing"

func TestSessionIgnoresUnwantedPorts(t *testing.T) {
	s := NewSession(SessionConfig{
		InputPort:  "KeyStep 32",
		OutputPort: "Fluid Synth",
	}, nil)

	s.HandleEvent(PortEvent{Type: PortConnected, Name: "Some Other Device", IsIn: true})
	s.HandleEvent(PortEvent{Type: PortConnected, Name: "Some Other Device", IsIn: false})

	if s.InputName() != "" {
		t.Errorf("input = %q, want none", s.InputName())
	}
	if s.OutputName() != "" {
		t.Errorf("output = %q, want none", s.OutputName())
	}
}

func TestSessionDisconnectOfStrangerIsNoOp(t *testing.T) {
	s := NewSession(SessionConfig{}, nil)

	s.HandleEvent(PortEvent{Type: PortDisconnected, Name: "Never Connected", IsIn: true})
	s.HandleEvent(PortEvent{Type: PortDisconnected, Name: "Never Connected", IsIn: false})

	if s.InputName() != "" || s.OutputName() != "" {
		t.Error("disconnect of unknown port should not change state")
	}
}
