// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrameLength is returned for frames too short to carry a checksum.
	ErrInvalidFrameLength = errors.New("invalid frame length")

	// ErrChecksumMismatch is returned when a frame fails its integrity check.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrFrameTooShort is returned when a frame does not cover every
	// single-byte field of the bound field map.
	ErrFrameTooShort = errors.New("frame too short for field map")

	// ErrFieldUnavailable marks a multi-byte field whose bytes lie outside
	// the frame payload.
	ErrFieldUnavailable = errors.New("field unavailable")

	// ErrInvalidCommand is returned for unknown command kinds and
	// parameters of the wrong type.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrEncoding is returned when a parameter does not fit its byte.
	ErrEncoding = errors.New("encoding error")
)

// ChecksumError carries the expected and received checksum bytes
type ChecksumError struct {
	Expected byte
	Received byte
}

// Error implements the error interface
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", e.Expected, e.Received)
}

// Unwrap allows errors.Is(err, ErrChecksumMismatch)
func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// FieldError reports a field that could not be decoded from a frame
type FieldError struct {
	Field  string
	Offset int
	Need   int // payload length required by the field
	Have   int // payload length available
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s unavailable: needs %d payload bytes from offset %d, have %d",
		e.Field, e.Need, e.Offset, e.Have)
}

// Unwrap allows errors.Is(err, ErrFieldUnavailable)
func (e *FieldError) Unwrap() error {
	return ErrFieldUnavailable
}
