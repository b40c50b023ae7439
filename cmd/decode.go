// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/aldestat/pkg/aldes"
)

var (
	decodeFallback bool
	decodeJSON     bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex]",
	Short: "Decode a captured frame",
	Long: `Decode one frame given as hex text, or read from stdin when no argument is
given. Spaces, commas, colons and 0x prefixes are ignored, so frames copied
from the raw MQTT topic or a logic analyzer can be pasted as-is.

With --fallback a frame failing the checksum is decoded anyway and the
mismatch reported as a warning.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&decodeFallback, "fallback", false, "Decode frames with a bad checksum")
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "Print the frame as JSON")
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	fieldMap, err := loadFieldMap(cfg.Bridge)
	if err != nil {
		return err
	}

	text := ""
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	return decodeFrame(cmd.OutOrStdout(), aldes.NewDecoder(fieldMap), strings.TrimSpace(text), decodeFallback, decodeJSON)
}

func decodeFrame(out io.Writer, decoder *aldes.Decoder, text string, fallback, asJSON bool) error {
	raw, err := aldes.ParseHex(text)
	if err != nil {
		return err
	}

	var frame *aldes.DecodedFrame
	if fallback {
		frame, err = decoder.DecodeWithFallback(raw)
	} else {
		frame, err = decoder.Decode(raw)
	}
	if frame == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(frame)
	}
	fmt.Fprint(out, aldes.FormatFrame(frame))
	for _, fe := range frame.Errors() {
		fmt.Fprintf(out, "  ! %v\n", fe)
	}
	return nil
}
