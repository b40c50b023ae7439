// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"errors"
	"math/rand"
	"testing"
)

func TestChecksum_Empty(t *testing.T) {
	if got := Checksum(nil); got != 0 {
		t.Errorf("Checksum of empty payload should be 0, got 0x%02X", got)
	}
}

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{name: "single byte", data: []byte{0x01}, expected: 0xFF},
		{name: "wraps at 256", data: []byte{0x80, 0x80}, expected: 0x00},
		{name: "auto command template", data: []byte{0xFD, 0xA0, 0x09, 0xA0, 0xFF, 0x01, 0xFF, 0xFF, 0x9F}, expected: 0x1D},
		{name: "captured status frame", data: capturedFrame[:len(capturedFrame)-1], expected: 0x7A},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.expected {
				t.Errorf("Checksum mismatch: expected 0x%02X, got 0x%02X", tt.expected, got)
			}
		})
	}
}

func TestChecksum_UniqueValidByte(t *testing.T) {
	rng := newFuzzRng(t)
	for i := 0; i < getFuzzRounds(); i++ {
		payload := make([]byte, rng.Intn(100))
		rng.Read(payload)

		b := Checksum(payload)
		if !ValidChecksum(append(append([]byte{}, payload...), b)) {
			t.Fatalf("payload % X: checksum 0x%02X does not validate", payload, b)
		}
		if ValidChecksum(append(append([]byte{}, payload...), b+1)) {
			t.Fatalf("payload % X: checksum 0x%02X+1 validates", payload, b)
		}
	}
}

func TestChecksum_SingleByteMutation(t *testing.T) {
	payload := append([]byte{}, capturedFrame[:len(capturedFrame)-1]...)
	original := Checksum(payload)

	if Checksum(payload) != original {
		t.Fatal("Checksum should be deterministic")
	}

	rng := rand.New(rand.NewSource(1))
	for i := range payload {
		mutated := append([]byte{}, payload...)
		mutated[i] ^= byte(rng.Intn(255) + 1)
		if Checksum(mutated) == original {
			t.Errorf("mutating byte %d did not change the checksum", i)
		}
	}
}

func TestVerifyChecksum(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		wantErr error
	}{
		{name: "empty", frame: nil, wantErr: ErrInvalidFrameLength},
		{name: "checksum only", frame: []byte{0x00}, wantErr: ErrInvalidFrameLength},
		{name: "valid two bytes", frame: []byte{0x01, 0xFF}, wantErr: nil},
		{name: "zero frame", frame: []byte{0x00, 0x00}, wantErr: nil},
		{name: "mismatch", frame: []byte{0x01, 0xFE}, wantErr: ErrChecksumMismatch},
		{name: "captured frame", frame: capturedFrame, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyChecksum(tt.frame)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVerifyChecksum_ErrorDetails(t *testing.T) {
	err := VerifyChecksum([]byte{0x01, 0x02, 0x00})

	var csErr *ChecksumError
	if !errors.As(err, &csErr) {
		t.Fatalf("expected *ChecksumError, got %T", err)
	}
	if csErr.Expected != 0xFD || csErr.Received != 0x00 {
		t.Errorf("ChecksumError = %+v, want expected 0xFD received 0x00", csErr)
	}
}

func TestAppendChecksum(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30}
	frame := AppendChecksum(payload)

	if len(frame) != 4 {
		t.Fatalf("len = %d, want 4", len(frame))
	}
	if !ValidChecksum(frame) {
		t.Error("AppendChecksum output does not validate")
	}
	if payload[0] != 0x10 || len(payload) != 3 {
		t.Error("AppendChecksum modified its input")
	}
}
