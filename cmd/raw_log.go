// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/aldestat/internal/bridge"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

var (
	rawLogDump  bool
	rawLogStats int
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display controller frames as they arrive.

Each frame is shown with its timestamp, field map and every decoded field.
Frames failing the checksum are reported with their raw bytes. Nothing is
published; use this to check wiring and field maps before running the bridge.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogDump, "dump", false, "Print a hex dump of every frame")
	rawLogCmd.Flags().IntVar(&rawLogStats, "stats-interval", 0, "Print statistics every N seconds (0 disables)")
}

// printObserver writes frames and commands to out as they are handled
type printObserver struct {
	out  io.Writer
	dump bool
}

func (p *printObserver) FrameDecoded(frame *aldes.DecodedFrame) {
	fmt.Fprint(p.out, aldes.FormatFrame(frame))
	if p.dump {
		fmt.Fprint(p.out, aldes.FormatDump(frame.Raw()))
	}
	fmt.Fprintln(p.out)
}

func (p *printObserver) FrameRejected(raw []byte, err error) {
	fmt.Fprintf(p.out, "[%s] [ERROR] %v\n", time.Now().Format("15:04:05.000"), err)
	fmt.Fprint(p.out, aldes.FormatDump(raw))
	fmt.Fprintln(p.out)
}

func (p *printObserver) CommandHandled(cmd aldes.Command, frame []byte, err error) {
	if err != nil {
		fmt.Fprintf(p.out, "[ERROR] %s: %v\n", cmd.Kind, err)
		return
	}
	fmt.Fprintln(p.out, aldes.FormatCommand(cmd, frame))
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fieldMap, err := loadFieldMap(cfg.Bridge)
	if err != nil {
		return err
	}

	dial, err := dialer(cfg, log)
	if err != nil {
		return err
	}

	b, err := bridge.New(bridge.Options{
		Dial:     dial,
		Decoder:  aldes.NewDecoder(fieldMap),
		Bridge:   cfg.Bridge,
		MQTT:     cfg.MQTT,
		Log:      log.Named("raw_log"),
		Observer: &printObserver{out: os.Stdout, dump: rawLogDump},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Aldestat - Raw Frame Log\n")
	fmt.Printf("Field map: %s (%d fields)\n", fieldMap.Version(), fieldMap.Len())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if rawLogStats > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(rawLogStats) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					fmt.Print(b.Stats().String())
					fmt.Println()
				}
			}
		}()
	}

	err = b.Run(ctx)
	fmt.Println()
	fmt.Print(b.Stats().String())
	return err
}
