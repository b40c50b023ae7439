// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"bytes"
	"testing"
)

func TestFrameCBOR_RoundTrip(t *testing.T) {
	out, err := NewDecoder(FieldMapV2).Decode(capturedFrame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	data, err := MarshalFrameCBOR(out)
	if err != nil {
		t.Fatalf("MarshalFrameCBOR failed: %v", err)
	}

	m, err := UnmarshalFrameCBOR(data)
	if err != nil {
		t.Fatalf("UnmarshalFrameCBOR failed: %v", err)
	}

	if len(m) != out.Len() {
		t.Errorf("decoded map has %d entries, want %d", len(m), out.Len())
	}
	if v, ok := GetMapFloat(m, "T_haut"); !ok || v != 53.5 {
		t.Errorf("T_haut = %v (%v)", v, ok)
	}
	if v, ok := GetMapFloat(m, "DP"); !ok || v != 255 {
		t.Errorf("DP = %v (%v)", v, ok)
	}
	if v, ok := GetMapFloat(m, "Conso_ventil"); !ok || v != -200.15 {
		t.Errorf("Conso_ventil = %v (%v)", v, ok)
	}
	if s, ok := GetMapString(m, "Soft_rev"); !ok || s != "26" {
		t.Errorf("Soft_rev = %q (%v)", s, ok)
	}
	if _, ok := GetMapString(m, "DP"); ok {
		t.Error("GetMapString should reject numbers")
	}
	if _, ok := GetMapFloat(nil, "DP"); ok {
		t.Error("GetMapFloat(nil) should fail")
	}
}

func TestFrameCBOR_Deterministic(t *testing.T) {
	out, _ := NewDecoder(FieldMapV2).Decode(capturedFrame)
	a, _ := MarshalFrameCBOR(out)
	for i := 0; i < 10; i++ {
		b, _ := MarshalFrameCBOR(out)
		if !bytes.Equal(a, b) {
			t.Fatal("CBOR encoding is not deterministic")
		}
	}
}

func TestUnmarshalFrameCBOR_Errors(t *testing.T) {
	if _, err := UnmarshalFrameCBOR(nil); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := UnmarshalFrameCBOR([]byte{0xFF, 0x00}); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}
