// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"errors"
	"sync"
	"testing"
)

// capturedFrame is a status frame read from a controller
var capturedFrame = []byte{
	0x33, 0xff, 0x4c, 0x33, 0x26, 0x00, 0x01, 0x01, 0x98, 0x03, 0x00, 0x00, 0x88, 0x00, 0x00, 0x28,
	0x95, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00, 0x00,
	0x56, 0x56, 0x56, 0x00, 0x93, 0x8b, 0xff, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x81, 0xc7, 0x2c, 0x01, 0x00, 0x00, 0x00, 0x00, 0xb0, 0xda, 0x38, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x32, 0x7a,
}

// frameWith returns a zeroed frame of length n with the given payload
// bytes set and a valid checksum
func frameWith(n int, set map[int]byte) []byte {
	frame := make([]byte, n)
	for i, b := range set {
		frame[i] = b
	}
	frame[n-1] = Checksum(frame[:n-1])
	return frame
}

func singleFieldMap(t *testing.T, typ DecodeType, offset int) *FieldMap {
	t.Helper()
	m, err := NewFieldMap("test", []FieldSpec{{Name: "f", Offset: offset, Type: typ, Publish: true}})
	if err != nil {
		t.Fatalf("NewFieldMap failed: %v", err)
	}
	return m
}

func decodeOne(t *testing.T, typ DecodeType, raw byte) Value {
	t.Helper()
	d := NewDecoder(singleFieldMap(t, typ, 0))
	out, err := d.Decode(frameWith(2, map[int]byte{0: raw}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	v, ok := out.Get("f")
	if !ok {
		t.Fatal("field f missing from decoded frame")
	}
	return v
}

func TestDecode_CapturedFrameV1(t *testing.T) {
	out, err := NewDecoder(FieldMapV1).Decode(capturedFrame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := []Field{
		{"Soft", TextValue("26")},
		{"Etat", IntValue(1)},
		{"Comp_C", FloatValue(0)},
		{"Comp_R", FloatValue(0)},
		{"T_hp", FloatValue(23)},
		{"T_vmc", FloatValue(23)},
		{"T_evap", FloatValue(23)},
		{"T_haut", FloatValue(53.5)},
		{"T_bas", FloatValue(49.5)},
		{"DP", IntValue(255)},
		{"Ventil_flow", FloatValue(5)},
		{"Ventil_rpm", IntValue(0)},
	}

	fields := out.Fields()
	if len(fields) != len(expected) {
		t.Fatalf("decoded %d fields, want %d", len(fields), len(expected))
	}
	for i, want := range expected {
		got := fields[i]
		if got.Name != want.Name {
			t.Errorf("field %d name = %s, want %s (map order)", i, got.Name, want.Name)
		}
		if !got.Value.Equal(want.Value) {
			t.Errorf("%s = %v (%s), want %v (%s)", want.Name, got.Value, got.Value.Kind(), want.Value, want.Value.Kind())
		}
	}

	if out.FieldMapVersion() != "v1" {
		t.Errorf("FieldMapVersion() = %s, want v1", out.FieldMapVersion())
	}
	if len(out.Errors()) != 0 {
		t.Errorf("unexpected field errors: %v", out.Errors())
	}
}

func TestDecode_CapturedFrameV2(t *testing.T) {
	out, err := NewDecoder(FieldMapV2).Decode(capturedFrame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	tests := []struct {
		name string
		want Value
	}{
		{"Soft", TextValue("26")},
		{"Soft_rev", TextValue("26")},
		{"T_consigne", FloatValue(22)},
		{"Conso_eau", FloatValue(957.779)},
		{"Conso_ventil", FloatValue(-200.15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := out.Get(tt.name)
			if !ok {
				t.Fatalf("%s missing", tt.name)
			}
			if !got.Equal(tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	// Passthrough bytes are not published
	if _, ok := out.Get("byte_00"); ok {
		t.Error("unpublished field byte_00 should not be decoded")
	}
}

func TestDecode_ChecksumMismatchReturnsNothing(t *testing.T) {
	corrupted := append([]byte{}, capturedFrame...)
	corrupted[len(corrupted)-1] ^= 0xFF

	out, err := NewDecoder(FieldMapV1).Decode(corrupted)
	if out != nil {
		t.Errorf("expected nil frame on checksum mismatch, got %d fields", out.Len())
	}
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestDecode_InvalidFrameLength(t *testing.T) {
	_, err := NewDecoder(FieldMapV1).Decode([]byte{0x00})
	if !errors.Is(err, ErrInvalidFrameLength) {
		t.Errorf("expected ErrInvalidFrameLength, got %v", err)
	}
}

func TestDecode_FrameTooShort(t *testing.T) {
	// Valid checksum but the payload ends before Ventil_rpm (offset 40)
	short := frameWith(40, nil)

	out, err := NewDecoder(FieldMapV1).Decode(short)
	if out != nil {
		t.Error("expected nil frame for a frame too short for the field map")
	}
	if !errors.Is(err, ErrFrameTooShort) {
		t.Errorf("expected ErrFrameTooShort, got %v", err)
	}
}

func TestDecode_AccumulatorUnavailable(t *testing.T) {
	m, err := NewFieldMap("short", []FieldSpec{
		{Name: "Etat", Offset: 6, Type: Identity, Publish: true},
		{Name: "T_hp", Offset: 8, Type: TempLinear, Publish: true},
		{Name: "Conso_eau", Offset: 8, Type: WaterAccum, Publish: true},
		{Name: "Conso_ventil", Offset: 4, Type: FanAccum, Publish: true},
	})
	if err != nil {
		t.Fatalf("NewFieldMap failed: %v", err)
	}

	// 10-byte payload: offsets 8..11 are out of range, 4..7 are fine
	frame := frameWith(11, map[int]byte{6: 3, 8: 0x50})
	out, err := NewDecoder(m).Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if v, _ := out.Get("Etat"); !v.Equal(IntValue(3)) {
		t.Errorf("Etat = %v, want 3", v)
	}
	if v, _ := out.Get("T_hp"); !v.Equal(FloatValue(20)) {
		t.Errorf("T_hp = %v, want 20.0", v)
	}
	if v, _ := out.Get("Conso_ventil"); !v.Available() {
		t.Error("Conso_ventil should be available")
	}

	v, ok := out.Get("Conso_eau")
	if !ok {
		t.Fatal("Conso_eau should be present and marked unavailable")
	}
	if v.Available() {
		t.Errorf("Conso_eau = %v, want unavailable", v)
	}

	errs := out.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(errs))
	}
	if errs[0].Field != "Conso_eau" || !errors.Is(errs[0], ErrFieldUnavailable) {
		t.Errorf("unexpected field error: %v", errs[0])
	}
	if errs[0].Need != 12 || errs[0].Have != 10 {
		t.Errorf("field error need/have = %d/%d, want 12/10", errs[0].Need, errs[0].Have)
	}

	if len(out.Available()) != 3 {
		t.Errorf("Available() returned %d fields, want 3", len(out.Available()))
	}
	if _, present := out.Map()["Conso_eau"]; present {
		t.Error("Map() should omit unavailable fields")
	}
}

func TestDecode_IdentityRoundTrip(t *testing.T) {
	for _, offset := range []int{6, 38} {
		out, err := NewDecoder(FieldMapV1).Decode(capturedFrame)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		name := map[int]string{6: "Etat", 38: "DP"}[offset]
		v, _ := out.Get(name)
		got, ok := v.Int()
		if !ok || got != int64(capturedFrame[offset]) {
			t.Errorf("%s = %v, want raw byte %d", name, v, capturedFrame[offset])
		}
	}
}

func TestDecodeValue_SingleByteTypes(t *testing.T) {
	tests := []struct {
		name string
		typ  DecodeType
		raw  byte
		want Value
	}{
		{"raw hex", RawHex, 0x26, TextValue("26")},
		{"raw hex pads", RawHex, 0x05, TextValue("05")},
		{"raw hex uppercase", RawHex, 0xAB, TextValue("AB")},
		{"identity", Identity, 200, IntValue(200)},
		{"half", Half, 7, FloatValue(3.5)},
		{"temp linear zero", TempLinear, 0x28, FloatValue(0)},
		{"temp linear negative", TempLinear, 0x00, FloatValue(-20)},
		{"temp linear max", TempLinear, 0xFF, FloatValue(107.5)},
		{"deca", Deca, 120, IntValue(1200)},
		{"flow", Flow, 3, FloatValue(5)},
		{"flow zero", Flow, 0, FloatValue(-1)},
		{"hex tail two digits", HexTail, 0x26, TextValue("26")},
		{"hex tail lowercase", HexTail, 0xAB, TextValue("ab")},
		{"hex tail single digit", HexTail, 0x05, TextValue("x5")},
		{"hex tail zero", HexTail, 0x00, TextValue("x0")},
		{"bcd worked example", BCDTemp, 0x62, FloatValue(18.5)},
		{"bcd zero", BCDTemp, 0x00, FloatValue(0)},
		{"bcd setpoint", BCDTemp, 0x88, FloatValue(22)},
		{"bcd quarter", BCDTemp, 0x95, FloatValue(25.25)},
		// 0xFF: fraction 0.75, nibbles 3 and 15 (invalid BCD, raw arithmetic)
		{"bcd invalid digit boundary", BCDTemp, 0xFF, FloatValue(45.75)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeOne(t, tt.typ, tt.raw)
			if !got.Equal(tt.want) {
				t.Errorf("%v(0x%02X) = %v (%s), want %v (%s)", tt.typ, tt.raw, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestDecodeValue_Accumulators(t *testing.T) {
	tests := []struct {
		name   string
		typ    DecodeType
		window [4]byte
		want   float64
	}{
		{"water zero", WaterAccum, [4]byte{0, 0, 0, 0}, 657.0},
		{"water units", WaterAccum, [4]byte{0, 0, 1, 0}, 658.0},
		{"water high byte", WaterAccum, [4]byte{0, 0, 0, 1}, 913.0},
		{"water fraction", WaterAccum, [4]byte{0, 0x80, 0, 0}, 657.5},
		{"water captured", WaterAccum, [4]byte{0x81, 0xc7, 0x2c, 0x01}, 957.779},
		{"fan zero", FanAccum, [4]byte{0, 0, 0, 0}, -257.004},
		{"fan all ones", FanAccum, [4]byte{1, 1, 1, 1}, 0},
		{"fan captured", FanAccum, [4]byte{0xb0, 0xda, 0x38, 0x00}, -200.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(singleFieldMap(t, tt.typ, 1))
			frame := frameWith(6, map[int]byte{1: tt.window[0], 2: tt.window[1], 3: tt.window[2], 4: tt.window[3]})
			out, err := d.Decode(frame)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			v, _ := out.Get("f")
			got, ok := v.Float()
			if !ok || got != tt.want {
				t.Errorf("%v % X = %v, want %v", tt.typ, tt.window, v, tt.want)
			}
		})
	}
}

// The fan counter was decoded with a +24 per-byte bias by one firmware
// revision. That convention is not supported; this pins the difference.
func TestDecodeValue_FanAccumHistoricalVariant(t *testing.T) {
	window := [4]byte{0xb0, 0xda, 0x38, 0x00}

	var historical float64
	for i, b := range window {
		historical += (float64(b) + 24) * accumWeights[i]
	}
	historical = round3(historical)
	if historical != 6224.948 {
		t.Fatalf("historical variant = %v, want 6224.948", historical)
	}

	got := fanConsumption(&window)
	if got == historical {
		t.Error("canonical fan decoding must not match the +24 historical variant")
	}
	if got != -200.15 {
		t.Errorf("canonical fan decoding = %v, want -200.15", got)
	}
}

func TestDecodeWithFallback(t *testing.T) {
	d := NewDecoder(FieldMapV1)

	corrupted := append([]byte{}, capturedFrame...)
	corrupted[10] ^= 0x01

	out, err := d.DecodeWithFallback(corrupted)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	if out == nil || out.Len() != 1 {
		t.Fatalf("expected degraded frame with one field, got %v", out)
	}
	if v, _ := out.Get("Etat"); !v.Equal(IntValue(0)) {
		t.Errorf("degraded Etat = %v, want 0", v)
	}

	// Valid frames decode normally
	out, err = d.DecodeWithFallback(capturedFrame)
	if err != nil || out.Len() != FieldMapV1.Len() {
		t.Errorf("DecodeWithFallback(valid) = %v fields, err %v", out, err)
	}

	// Length errors stay errors without a degraded frame
	out, err = d.DecodeWithFallback(frameWith(10, nil))
	if out != nil || !errors.Is(err, ErrFrameTooShort) {
		t.Errorf("DecodeWithFallback(short) = %v, %v; want nil, ErrFrameTooShort", out, err)
	}
}

func TestDecode_DoesNotRetainInput(t *testing.T) {
	frame := append([]byte{}, capturedFrame...)
	out, err := NewDecoder(FieldMapV1).Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	frame[4] = 0x99
	if out.Raw()[4] != 0x26 {
		t.Error("decoded frame shares memory with the input slice")
	}
	if v, _ := out.Get("Soft"); !v.Equal(TextValue("26")) {
		t.Errorf("Soft = %v after input mutation, want 26", v)
	}
}

func TestDecoder_SetFieldMapConcurrent(t *testing.T) {
	d := NewDecoder(FieldMapV1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				out, err := d.Decode(capturedFrame)
				if err != nil {
					t.Errorf("Decode failed: %v", err)
					return
				}
				// Every result comes from exactly one map version
				switch out.FieldMapVersion() {
				case "v1":
					if out.Len() != FieldMapV1.Len() {
						t.Errorf("v1 frame has %d fields", out.Len())
					}
				case "v2":
					if _, ok := out.Get("Conso_eau"); !ok {
						t.Error("v2 frame missing Conso_eau")
					}
				}
			}
		}()
	}

	for j := 0; j < 100; j++ {
		if j%2 == 0 {
			d.SetFieldMap(FieldMapV2)
		} else {
			d.SetFieldMap(FieldMapV1)
		}
	}
	wg.Wait()
}
