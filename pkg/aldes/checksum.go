// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import "fmt"

// Checksum computes the two's complement of the byte sum of payload
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return -sum
}

// ValidChecksum reports whether the last byte of frame is the checksum of
// the bytes before it. Frames shorter than MinFrameLength are never valid.
func ValidChecksum(frame []byte) bool {
	return VerifyChecksum(frame) == nil
}

// VerifyChecksum validates the trailing checksum byte of frame.
// Returns ErrInvalidFrameLength for frames shorter than MinFrameLength and
// a *ChecksumError on mismatch.
func VerifyChecksum(frame []byte) error {
	if len(frame) < MinFrameLength {
		return fmt.Errorf("%w: %d bytes (min %d)", ErrInvalidFrameLength, len(frame), MinFrameLength)
	}

	last := len(frame) - 1
	expected := Checksum(frame[:last])
	if expected != frame[last] {
		return &ChecksumError{Expected: expected, Received: frame[last]}
	}
	return nil
}

// AppendChecksum returns payload followed by its checksum byte
func AppendChecksum(payload []byte) []byte {
	out := make([]byte, len(payload)+1)
	copy(out, payload)
	out[len(payload)] = Checksum(payload)
	return out
}
