// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package aldes implements the Aldes ventilation controller UART protocol.
//
// The controller periodically emits a fixed-length status frame terminated
// by a one-byte checksum, and accepts short fixed-layout command frames.
// This package provides checksum handling, a field-map-driven frame
// decoder, the command encoder and a stream synchronizer. It performs no
// I/O.
package aldes

// Frame layout
const (
	// DefaultFrameLength is the length of the status frame emitted by the
	// controller, checksum byte included.
	DefaultFrameLength = 77

	// MinFrameLength is one payload byte plus the checksum.
	MinFrameLength = 2

	// CommandFrameLength is the template length plus the checksum byte.
	CommandFrameLength = 10
)

// Command frame template positions
const (
	posTemperature = 4
	posMode        = 5
	posParamHigh   = 6
	posParamLow    = 7
)

// commandTemplate is copied for every encode, never written in place.
var commandTemplate = [CommandFrameLength - 1]byte{0xFD, 0xA0, 0x09, 0xA0, 0xFF, 0xFF, 0xFF, 0xFF, 0x9F}

// Mode codes written at posMode
const (
	ModeAuto     = 0x01
	ModeBoost    = 0x02
	ModeConfort  = 0x03
	ModeVacances = 0x04
)

// Command parameter defaults
const (
	DefaultConfortDays    = 2
	DefaultVacancesDays   = 10
	DefaultDebugCode      = 0x01
	DefaultTemperatureRaw = 0x85
)

// Accumulator decoding
const (
	// WaterAccumBias is added once to the weighted water consumption sum.
	WaterAccumBias = 657.0

	// FanAccumTermBias is added to every byte before weighting when
	// decoding the fan consumption counter.
	FanAccumTermBias = -1.0

	// accumWidth is the number of bytes read by accumulator fields.
	accumWidth = 4
)

// accumWeights apply to the bytes at offset+0 .. offset+3.
var accumWeights = [accumWidth]float64{1.0 / 65536, 1.0 / 256, 1, 256}
