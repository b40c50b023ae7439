// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/aldestat/pkg/aldes"
)

var encodeSend bool

var encodeCmd = &cobra.Command{
	Use:   "encode <json>",
	Short: "Encode a command and optionally send it",
	Long: `Encode a JSON command into the 10-byte frame the controller accepts.

Examples:
  aldestat encode '{"type":"boost"}'
  aldestat encode '{"type":"confort","params":{"duration":3}}'
  aldestat encode '{"type":"temp","params":{"temperature":21.5}}' --send -p /dev/ttyAMA0

Kinds: auto, boost, confort, vacances, temp, debug.`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().BoolVar(&encodeSend, "send", false, "Write the frame to the connection")
}

func runEncode(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	command, frame, err := encodeCommand(out, args[0])
	if err != nil {
		return err
	}
	if !encodeSend {
		return nil
	}

	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	fmt.Fprintf(out, "Sent %s to %s\n", command.Kind, connInfo)
	return nil
}

func encodeCommand(out io.Writer, text string) (aldes.Command, []byte, error) {
	command, err := aldes.ParseCommand([]byte(text))
	if err != nil {
		return aldes.Command{}, nil, err
	}
	frame, err := aldes.Encode(command)
	if err != nil {
		return aldes.Command{}, nil, err
	}
	fmt.Fprintln(out, aldes.FormatCommand(command, frame))
	return command, frame, nil
}
