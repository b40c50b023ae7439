// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/aldestat/internal/bridge"
	"github.com/Thermoquad/aldestat/internal/logging"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

var monitorShowAll bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive terminal UI for frames, statistics and commands",
	Long: `Show the latest decoded fields, frame statistics and an event log, and
send commands to the unit from the prompt:

  auto | boost | confort [days] | vacances [days] | temp <celsius>

By default only errors and commands are logged. Use --show-all to log every
frame too. Logs go to logging.file when set, otherwise they are discarded
so they do not corrupt the display.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", false, "Log every frame (not just errors)")
}

// teaObserver forwards bridge events to the running program
type teaObserver struct {
	p *tea.Program
}

func (o teaObserver) FrameDecoded(frame *aldes.DecodedFrame) {
	o.p.Send(frameMsg{frame: frame})
}

func (o teaObserver) FrameRejected(raw []byte, err error) {
	o.p.Send(frameMsg{raw: raw, err: err})
}

func (o teaObserver) CommandHandled(cmd aldes.Command, frame []byte, err error) {
	o.p.Send(commandMsg{cmd: cmd, frame: frame, err: err})
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	log, err := logging.InitFileLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fieldMap, err := loadFieldMap(cfg.Bridge)
	if err != nil {
		return err
	}

	// Before the alt screen takes over the terminal
	dial, err := dialer(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := initialMonitorModel(endpointName(cfg.Serial.Port, cfg.Serial.Baud, cfg.WebSocket.URL), monitorShowAll)
	p := tea.NewProgram(m, tea.WithAltScreen())

	b, err := bridge.New(bridge.Options{
		Dial:     dial,
		Decoder:  aldes.NewDecoder(fieldMap),
		Bridge:   cfg.Bridge,
		MQTT:     cfg.MQTT,
		Log:      log.Named("monitor"),
		Observer: teaObserver{p: p},
	})
	if err != nil {
		return err
	}

	// Send blocks until the program loop is running
	go func() {
		p.Send(bridgeReadyMsg{bridge: b})
		err := b.Run(ctx)
		p.Send(bridgeStoppedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

func endpointName(port string, baud int, url string) string {
	if url != "" {
		return url
	}
	return fmt.Sprintf("%s @ %d baud", port, baud)
}
