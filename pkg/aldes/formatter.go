// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FormatHex renders bytes as space separated lowercase hex ("33 ff 4c"),
// the format published on the raw frame topic.
func FormatHex(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 3)
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", v)
	}
	return b.String()
}

// ParseHex accepts hex text with optional whitespace, commas, colons and
// 0x prefixes ("33 ff", "33ff", "0x33, 0xFF").
func ParseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer("0x", "", "0X", "", ",", "", ":", "", " ", "", "\t", "", "\n", "", "\r", "").Replace(s)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex frame: %w", err)
	}
	return data, nil
}

// FormatFrame formats a decoded frame into a human-readable string
func FormatFrame(d *DecodedFrame) string {
	timestamp := d.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] FRAME map=%s len=%d checksum=0x%02X\n",
		timestamp, d.FieldMapVersion(), len(d.raw), d.raw[len(d.raw)-1])

	width := 0
	for _, f := range d.fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}

	for _, f := range d.fields {
		result += fmt.Sprintf("  %-*s %s\n", width+1, f.Name+":", f.Value.String())
	}
	return result
}

// FormatDump renders a frame as a 16-bytes-per-line offset dump
func FormatDump(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&b, "  %02d: ", i)
		for j, v := range data[i:end] {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%02X", v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatCommand describes an encoded command frame
func FormatCommand(cmd Command, frame []byte) string {
	params := ""
	parts := make([]string, 0, 2)
	for _, name := range []string{ParamDuration, ParamTemperature} {
		if v, ok := cmd.Params[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", name, v))
		}
	}
	if len(parts) > 0 {
		params = " (" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprintf("COMMAND %s%s -> %s", cmd.Kind, params, FormatHex(frame))
}
