// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"errors"
	"strings"
	"testing"
)

func TestStatistics_RecordFrame(t *testing.T) {
	st := NewStatistics()
	d := NewDecoder(FieldMapV1)

	for i := 0; i < 3; i++ {
		st.RecordFrame(d.Decode(capturedFrame))
	}

	corrupted := append([]byte{}, capturedFrame...)
	corrupted[0] ^= 0x01
	st.RecordFrame(d.Decode(corrupted))
	st.RecordFrame(d.Decode(frameWith(10, nil)))

	short := MustFieldMap("x", []FieldSpec{{Name: "Water", Offset: 0, Type: WaterAccum, Publish: true}})
	st.RecordFrame(NewDecoder(short).Decode([]byte{0x01, 0xFF}))

	st.RecordDiscarded(12)
	st.RecordCommand(nil)
	st.RecordCommand(errors.New("rejected"))

	s := st.Snapshot()
	if s.TotalFrames != 6 || s.ValidFrames != 4 {
		t.Errorf("total=%d valid=%d, want 6/4", s.TotalFrames, s.ValidFrames)
	}
	if s.ChecksumErrors != 1 || s.LengthErrors != 1 || s.Errors() != 2 {
		t.Errorf("checksum=%d length=%d", s.ChecksumErrors, s.LengthErrors)
	}
	if s.UnavailableFields != 1 {
		t.Errorf("UnavailableFields = %d, want 1", s.UnavailableFields)
	}
	if s.DiscardedBytes != 12 || s.CommandsSent != 1 || s.CommandsRejected != 1 {
		t.Errorf("discarded=%d sent=%d rejected=%d", s.DiscardedBytes, s.CommandsSent, s.CommandsRejected)
	}

	text := st.String()
	for _, want := range []string{"Total Frames:", "Checksum Errors:", "Discarded Bytes:", "1 sent, 1 rejected"} {
		if !strings.Contains(text, want) {
			t.Errorf("String() missing %q:\n%s", want, text)
		}
	}
}

func TestStatistics_Reset(t *testing.T) {
	st := NewStatistics()
	st.RecordFrame(nil, ErrChecksumMismatch)
	st.Reset()

	if s := st.Snapshot(); s.TotalFrames != 0 || s.ChecksumErrors != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
}
