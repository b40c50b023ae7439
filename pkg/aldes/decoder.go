// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Decoder turns checksum-valid frames into named values using a field map.
// A Decoder is safe for concurrent use.
type Decoder struct {
	fields atomic.Pointer[FieldMap]
}

// NewDecoder creates a decoder bound to m
func NewDecoder(m *FieldMap) *Decoder {
	d := &Decoder{}
	d.fields.Store(m)
	return d
}

// FieldMap returns the field map currently bound to the decoder
func (d *Decoder) FieldMap() *FieldMap {
	return d.fields.Load()
}

// SetFieldMap atomically replaces the bound field map. Decodes already in
// progress finish with the map they started with.
func (d *Decoder) SetFieldMap(m *FieldMap) {
	d.fields.Store(m)
}

// Decode validates frame and decodes every published field.
//
// On checksum failure or a frame too short for the field map, no fields
// are returned. Multi-byte fields reaching past the payload are reported
// as unavailable on the returned frame without failing the decode.
func (d *Decoder) Decode(frame []byte) (*DecodedFrame, error) {
	m := d.fields.Load()

	if err := VerifyChecksum(frame); err != nil {
		return nil, err
	}

	payload := frame[:len(frame)-1]
	if need := m.MinPayloadLength(); len(payload) < need {
		return nil, fmt.Errorf("%w: payload is %d bytes, field map %s needs %d",
			ErrFrameTooShort, len(payload), m.Version(), need)
	}

	out := newDecodedFrame(m.Version(), frame, m.Len())
	for _, f := range m.fields {
		if !f.Publish {
			continue
		}
		v, err := decodeField(f, payload)
		if err != nil {
			out.errs = append(out.errs, err)
		}
		out.add(f.Name, v)
	}

	return out, nil
}

// DecodeWithFallback behaves like Decode, except that a checksum mismatch
// yields a degraded frame holding only Etat = 0 alongside the error.
// Older firmware published that state to signal a bad frame.
func (d *Decoder) DecodeWithFallback(frame []byte) (*DecodedFrame, error) {
	decoded, err := d.Decode(frame)
	if err != nil && errors.Is(err, ErrChecksumMismatch) {
		degraded := newDecodedFrame(d.FieldMap().Version(), frame, 1)
		degraded.add("Etat", IntValue(0))
		return degraded, err
	}
	return decoded, err
}

// decodeField applies the field's decode type. Single-byte offsets have
// been bounds checked by the caller through MinPayloadLength.
func decodeField(f FieldSpec, payload []byte) (Value, *FieldError) {
	switch f.Type {
	case RawHex:
		return TextValue(fmt.Sprintf("%02X", payload[f.Offset])), nil
	case Identity:
		return IntValue(int64(payload[f.Offset])), nil
	case Half:
		return FloatValue(float64(payload[f.Offset]) / 2), nil
	case TempLinear:
		return FloatValue(float64(payload[f.Offset])*0.5 - 20), nil
	case Deca:
		return IntValue(int64(payload[f.Offset]) * 10), nil
	case Flow:
		return FloatValue(float64(payload[f.Offset])*2 - 1), nil
	case HexTail:
		return TextValue(hexTail(payload[f.Offset])), nil
	case BCDTemp:
		return FloatValue(bcdTemperature(payload[f.Offset])), nil
	case WaterAccum:
		window, err := accumWindow(f, payload)
		if err != nil {
			return Unavailable(), err
		}
		return FloatValue(waterConsumption(window)), nil
	case FanAccum:
		window, err := accumWindow(f, payload)
		if err != nil {
			return Unavailable(), err
		}
		return FloatValue(fanConsumption(window)), nil
	default:
		// NewFieldMap rejects unknown types
		panic(fmt.Sprintf("aldes: unhandled decode type %v", f.Type))
	}
}

// hexTail keeps the last two characters of the 0x-prefixed hex text,
// so values below 0x10 render as "x5".
func hexTail(b byte) string {
	s := fmt.Sprintf("%#x", b)
	return s[len(s)-2:]
}

// bcdTemperature decodes a quarter-degree BCD temperature: bits 0-1 select
// the fraction, bits 2-5 hold the units digit and bits 6-7 the tens digit.
// Nibbles above 9 are not rejected and contribute their raw value.
func bcdTemperature(b byte) float64 {
	fraction := float64(b&0x03) * 0.25
	digits := b >> 2
	tens := digits >> 4
	units := digits & 0x0F
	return float64(tens)*10 + float64(units) + fraction
}

// accumWindow returns the four accumulator bytes of f
func accumWindow(f FieldSpec, payload []byte) (*[accumWidth]byte, *FieldError) {
	end := f.Offset + accumWidth
	if end > len(payload) {
		return nil, &FieldError{Field: f.Name, Offset: f.Offset, Need: end, Have: len(payload)}
	}
	return (*[accumWidth]byte)(payload[f.Offset:end]), nil
}

func waterConsumption(window *[accumWidth]byte) float64 {
	var sum float64
	for i, b := range window {
		sum += float64(b) * accumWeights[i]
	}
	return round3(sum + WaterAccumBias)
}

func fanConsumption(window *[accumWidth]byte) float64 {
	var sum float64
	for i, b := range window {
		sum += (float64(b) + FanAccumTermBias) * accumWeights[i]
	}
	return round3(sum)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
