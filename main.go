package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/designerzen/harmoneasy-sub002/clock"
	"github.com/designerzen/harmoneasy-sub002/config"
	"github.com/designerzen/harmoneasy-sub002/midi"
	"github.com/designerzen/harmoneasy-sub002/pipeline"
	"github.com/designerzen/harmoneasy-sub002/scheduler"
	"github.com/designerzen/harmoneasy-sub002/theme"
	"github.com/designerzen/harmoneasy-sub002/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger()
	defer log.Sync()

	th := theme.New(loadPalette(log))

	// Transformation chain
	chain := pipeline.NewManager(log)
	if cfg.AutoPreset != "" {
		if data, err := config.LoadPreset(cfg.AutoPreset); err != nil {
			log.Warn("cannot load preset", zap.String("preset", cfg.AutoPreset), zap.Error(err))
		} else if err := chain.UnmarshalPreset(data); err != nil {
			log.Warn("bad preset", zap.String("preset", cfg.AutoPreset), zap.Error(err))
		}
	}
	if chain.Len() == 0 {
		chain.Append(pipeline.NewQuantizer(log))
		chain.Append(pipeline.NewHarmonizer(log))
	}

	sched := scheduler.New(chain, log)

	clk := clock.New(cfg.UI.LastTempo, func(t pipeline.Snapshot) {
		sched.OnTick(t)
	}, log)

	// MIDI wiring: input events are transformed against the current clock
	// snapshot and land in the scheduler queue.
	factory := &pipeline.Factory{}
	session := midi.NewSession(midi.SessionConfig{
		InputPort:  cfg.Device.InputPort,
		OutputPort: cfg.Device.OutputPort,
		Channel:    uint8(cfg.Device.Channel),
		Factory:    factory,
		Now:        clk.Now,
		Dispatch: func(cmds []pipeline.Command) {
			sched.Dispatch(cmds, clk.Snapshot())
		},
		Attach: sched.AddOutput,
		Detach: sched.RemoveOutput,
	}, log)
	defer session.Close()

	watcher := midi.NewWatcher(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go clk.Run(ctx)
	go watcher.Run(ctx)

	m := tui.NewModel(chain, sched, clk, session, watcher, th, cfg.AutoPreset, log)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cfg.UI.LastTempo = clk.BPM()
	if err := cfg.Save(); err != nil {
		log.Warn("cannot save config", zap.Error(err))
	}
}

// newLogger writes structured logs to a file so they do not fight the TUI
// for the terminal.
func newLogger() *zap.Logger {
	dir, err := config.ConfigDir()
	if err != nil {
		return zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zap.NewNop()
	}

	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{filepath.Join(dir, "harmoneasy.log")}
	zc.ErrorOutputPaths = zc.OutputPaths

	log, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// loadPalette takes a user palette from the config dir when present.
func loadPalette(log *zap.Logger) *theme.Palette {
	dir, err := config.ConfigDir()
	if err != nil {
		return theme.Default()
	}
	path := filepath.Join(dir, "palette.gpl")
	p, err := theme.LoadGPL(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot load palette", zap.String("path", path), zap.Error(err))
		}
		return theme.Default()
	}
	return p
}
