// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode sorts map keys so equal frames encode to equal bytes
var cborEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("aldes: cbor enc mode: %v", err))
	}
	return em
}()

// MarshalFrameCBOR encodes the available fields of d as a CBOR map:
// field name -> integer, float or text.
func MarshalFrameCBOR(d *DecodedFrame) ([]byte, error) {
	data, err := cborEncMode.Marshal(d.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR frame: %w", err)
	}
	return data, nil
}

// UnmarshalFrameCBOR decodes a map produced by MarshalFrameCBOR
func UnmarshalFrameCBOR(data []byte) (map[string]interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty CBOR payload")
	}

	var m map[string]interface{}
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return m, nil
}

// Map value extraction helpers

// GetMapFloat extracts a number from a decoded CBOR map by field name
func GetMapFloat(m map[string]interface{}, name string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[name]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}

// GetMapString extracts a text value from a decoded CBOR map by field name
func GetMapString(m map[string]interface{}, name string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
