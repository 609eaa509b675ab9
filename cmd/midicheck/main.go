package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/designerzen/harmoneasy-sub002/theory"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitorInput()
	case "chord":
		testChord()
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list     - List all MIDI ports")
	fmt.Println("  monitor  - Print incoming messages from the first input")
	fmt.Println("  chord    - Send a C major chord to the first output")
	fmt.Println("  poll     - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func monitorInput() {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		fmt.Println("No MIDI inputs found")
		return
	}

	port := ins[0]
	fmt.Printf("Monitoring %s (Ctrl+C to exit)\n", port.String())

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		var ch, note, vel, cc, val uint8
		var bend int16
		var abs uint16
		switch {
		case msg.GetNoteStart(&ch, &note, &vel):
			fmt.Printf("  note on  ch:%d note:%d vel:%d\n", ch, note, vel)
		case msg.GetNoteEnd(&ch, &note):
			fmt.Printf("  note off ch:%d note:%d\n", ch, note)
		case msg.GetControlChange(&ch, &cc, &val):
			fmt.Printf("  cc       ch:%d ctrl:%d val:%d\n", ch, cc, val)
		case msg.GetPitchBend(&ch, &bend, &abs):
			fmt.Printf("  bend     ch:%d value:%d\n", ch, bend)
		default:
			fmt.Printf("  %s\n", msg.String())
		}
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer stop()

	select {}
}

func testChord() {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		fmt.Println("No MIDI outputs found")
		return
	}

	port := outs[0]
	fmt.Printf("Using output: %s\n", port.String())

	send, err := midi.SendTo(port)
	if err != nil {
		fmt.Printf("Error opening port: %v\n", err)
		return
	}

	formula, _ := theory.ChordFormula("Major")
	notes := theory.CreateChord(theory.KeyboardPool(), formula, 60, 0, 0, true, true)
	fmt.Printf("Sending chord: %v\n", notes)

	for _, n := range notes {
		send(midi.NoteOn(0, uint8(n), 100))
	}
	time.Sleep(time.Second)
	for _, n := range notes {
		send(midi.NoteOff(0, uint8(n)))
	}

	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect devices to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()

		// Build current state
		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
