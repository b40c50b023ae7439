// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/internal/bridge"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// Exit codes
const (
	exitFrameReceived = 0
	exitTimeout       = 1
	exitConnection    = 2
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid controller frame",
	Long: `Wait for a valid status frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any frame
passing the checksum. Bytes before the first frame are ignored.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking UART wiring and baud rate before running the bridge.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

// firstFrame captures the first decoded frame
type firstFrame struct {
	frames chan *aldes.DecodedFrame
}

func (f *firstFrame) FrameDecoded(frame *aldes.DecodedFrame) {
	select {
	case f.frames <- frame:
	default:
	}
}

func (f *firstFrame) FrameRejected([]byte, error)                 {}
func (f *firstFrame) CommandHandled(aldes.Command, []byte, error) {}

func runPacketTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(exitConnection)
	}
	cfg.Bridge.ReconnectAttempts = 1

	fieldMap, err := loadFieldMap(cfg.Bridge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Field map error: %v\n", err)
		os.Exit(exitConnection)
	}

	dial, err := dialer(cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnection)
	}

	observer := &firstFrame{frames: make(chan *aldes.DecodedFrame, 1)}
	b, err := bridge.New(bridge.Options{
		Dial:     dial,
		Decoder:  aldes.NewDecoder(fieldMap),
		Bridge:   cfg.Bridge,
		MQTT:     cfg.MQTT,
		Log:      zap.NewNop(),
		Observer: observer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(exitConnection)
	}

	fmt.Printf("Aldestat - Frame Test\n")
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- b.Run(ctx)
	}()

	select {
	case frame := <-observer.frames:
		stats := b.Stats()
		fmt.Printf("SUCCESS: Received valid frame\n")
		if stats.DiscardedBytes > 0 {
			fmt.Printf("  (skipped %d bytes before sync)\n", stats.DiscardedBytes)
		}
		fmt.Printf("  Field map: %s\n", frame.FieldMapVersion())
		fmt.Printf("  Length: %d bytes\n", len(frame.Raw()))
		fmt.Printf("  Checksum: 0x%02X\n", frame.Raw()[len(frame.Raw())-1])
		fmt.Printf("  Fields: %d available, %d unavailable\n", len(frame.Available()), len(frame.Errors()))
		os.Exit(exitFrameReceived)

	case err := <-runErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
			os.Exit(exitConnection)
		}
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(exitTimeout)
	}

	return nil
}
