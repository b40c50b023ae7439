// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Statistics tracks frame and command outcomes. Safe for concurrent use.
type Statistics struct {
	mu sync.Mutex
	s  StatsSnapshot
}

// StatsSnapshot is a point-in-time copy of the counters
type StatsSnapshot struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Frames
	TotalFrames       uint64
	ValidFrames       uint64
	ChecksumErrors    uint64
	LengthErrors      uint64
	UnavailableFields uint64
	DiscardedBytes    uint64

	// Commands
	CommandsSent     uint64
	CommandsRejected uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{s: StatsSnapshot{StartTime: now, LastUpdateTime: now}}
}

// RecordFrame counts the outcome of one decode
func (st *Statistics) RecordFrame(frame *DecodedFrame, decodeErr error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.TotalFrames++
	st.s.LastUpdateTime = time.Now()

	switch {
	case decodeErr == nil:
		st.s.ValidFrames++
	case errors.Is(decodeErr, ErrChecksumMismatch):
		st.s.ChecksumErrors++
	default:
		st.s.LengthErrors++
	}

	if frame != nil {
		st.s.UnavailableFields += uint64(len(frame.Errors()))
	}
}

// RecordDiscarded adds bytes dropped by the frame synchronizer
func (st *Statistics) RecordDiscarded(n uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.DiscardedBytes += n
}

// RecordCommand counts an encode/write attempt
func (st *Statistics) RecordCommand(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err != nil {
		st.s.CommandsRejected++
	} else {
		st.s.CommandsSent++
	}
	st.s.LastUpdateTime = time.Now()
}

// Snapshot returns the counters with rates calculated
func (st *Statistics) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	snap := st.s
	elapsed := time.Since(snap.StartTime).Seconds()
	if elapsed > 0 {
		snap.FrameRate = float64(snap.TotalFrames) / elapsed
		snap.ErrorRate = float64(snap.Errors()) / elapsed
	}
	return snap
}

// Reset resets all statistics counters
func (st *Statistics) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.s = StatsSnapshot{StartTime: now, LastUpdateTime: now}
}

// String returns a formatted statistics summary
func (st *Statistics) String() string {
	return st.Snapshot().String()
}

// Errors returns the number of frames that failed to decode
func (s StatsSnapshot) Errors() uint64 {
	return s.ChecksumErrors + s.LengthErrors
}

// String returns a formatted statistics summary
func (s StatsSnapshot) String() string {
	var validPercent, checksumPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.LengthErrors > 0 {
		result += fmt.Sprintf("Length Errors:   %8d\n", s.LengthErrors)
	}
	if s.UnavailableFields > 0 {
		result += fmt.Sprintf("Unavail. Fields: %8d\n", s.UnavailableFields)
	}
	if s.DiscardedBytes > 0 {
		result += fmt.Sprintf("Discarded Bytes: %8d\n", s.DiscardedBytes)
	}
	if s.CommandsSent > 0 || s.CommandsRejected > 0 {
		result += fmt.Sprintf("Commands:        %8d sent, %d rejected\n", s.CommandsSent, s.CommandsRejected)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}
