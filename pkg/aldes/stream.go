// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import "fmt"

// FrameSync extracts fixed-length, checksum-valid frames from a raw byte
// stream. The protocol has no start marker, so the synchronizer slides a
// frame-sized window one byte at a time until the checksum matches.
//
// A FrameSync is not safe for concurrent use; give each reader its own.
type FrameSync struct {
	frameLength  int
	window       []byte
	synchronized bool
	discarded    uint64 // bytes dropped while searching for a frame
	frames       uint64
}

// NewFrameSync creates a synchronizer for frames of frameLength bytes
func NewFrameSync(frameLength int) (*FrameSync, error) {
	if frameLength < MinFrameLength {
		return nil, fmt.Errorf("%w: frame length %d (min %d)", ErrInvalidFrameLength, frameLength, MinFrameLength)
	}
	return &FrameSync{
		frameLength: frameLength,
		window:      make([]byte, 0, frameLength),
	}, nil
}

// Reset drops any partial frame and marks the stream unsynchronized
func (s *FrameSync) Reset() {
	s.window = s.window[:0]
	s.synchronized = false
}

// FrameLength returns the configured frame length
func (s *FrameSync) FrameLength() int {
	return s.frameLength
}

// Synchronized reports whether at least one frame was found since Reset
func (s *FrameSync) Synchronized() bool {
	return s.synchronized
}

// Discarded returns the number of bytes dropped while searching for frames
func (s *FrameSync) Discarded() uint64 {
	return s.discarded
}

// Frames returns the number of frames emitted
func (s *FrameSync) Frames() uint64 {
	return s.frames
}

// Buffered returns the number of bytes waiting in the window
func (s *FrameSync) Buffered() int {
	return len(s.window)
}

// PushByte processes one byte of the stream.
// Returns a complete frame (owned by the caller), or nil.
func (s *FrameSync) PushByte(b byte) []byte {
	s.window = append(s.window, b)
	if len(s.window) < s.frameLength {
		return nil
	}

	if ValidChecksum(s.window) {
		frame := make([]byte, s.frameLength)
		copy(frame, s.window)
		s.window = s.window[:0]
		s.synchronized = true
		s.frames++
		return frame
	}

	// Slide the window by one byte
	copy(s.window, s.window[1:])
	s.window = s.window[:s.frameLength-1]
	s.discarded++
	return nil
}

// Push processes a chunk of the stream and returns every completed frame
func (s *FrameSync) Push(p []byte) [][]byte {
	var frames [][]byte
	for _, b := range p {
		if frame := s.PushByte(b); frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames
}
