// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// framer splits the controller byte stream into candidate frames
type framer interface {
	// push consumes a chunk and returns completed frames
	push(chunk []byte) [][]byte
	// gap is called after the line has been idle for the frame gap
	gap() [][]byte
	// discarded returns the bytes dropped since the previous call
	discarded() uint64
}

// syncFramer finds frames with the checksum sliding window. An idle gap
// drops any partial window, since the next byte starts a new frame.
type syncFramer struct {
	s       *aldes.FrameSync
	seen    uint64 // s.Discarded() at the previous discarded call
	dropped uint64 // partial windows dropped on a gap
}

func (f *syncFramer) push(chunk []byte) [][]byte {
	return f.s.Push(chunk)
}

func (f *syncFramer) gap() [][]byte {
	if n := f.s.Buffered(); n > 0 {
		f.dropped += uint64(n)
		f.s.Reset()
	}
	return nil
}

func (f *syncFramer) discarded() uint64 {
	total := f.s.Discarded()
	n := total - f.seen + f.dropped
	f.seen = total
	f.dropped = 0
	return n
}

// burstFramer returns every burst of bytes ended by an idle gap as one
// frame, leaving validation to the decoder
type burstFramer struct {
	buf     []byte
	max     int
	dropped uint64
}

func (f *burstFramer) push(chunk []byte) [][]byte {
	f.buf = append(f.buf, chunk...)
	if len(f.buf) > f.max {
		// No gap for too long: this is not a frame
		f.dropped += uint64(len(f.buf))
		f.buf = f.buf[:0]
	}
	return nil
}

func (f *burstFramer) gap() [][]byte {
	if len(f.buf) == 0 {
		return nil
	}
	frame := make([]byte, len(f.buf))
	copy(frame, f.buf)
	f.buf = f.buf[:0]
	return [][]byte{frame}
}

func (f *burstFramer) discarded() uint64 {
	n := f.dropped
	f.dropped = 0
	return n
}
