// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"fmt"
	"sort"
)

// DecodeType selects how a field's bytes are turned into a value
type DecodeType int

// Decode type values
const (
	RawHex DecodeType = iota
	Identity
	Half
	TempLinear
	Deca
	Flow
	HexTail
	BCDTemp
	WaterAccum
	FanAccum
)

var decodeTypeNames = [...]string{
	RawHex:     "raw_hex",
	Identity:   "identity",
	Half:       "half",
	TempLinear: "temp_linear",
	Deca:       "deca",
	Flow:       "flow",
	HexTail:    "hex_tail",
	BCDTemp:    "bcd_temp",
	WaterAccum: "water_accum",
	FanAccum:   "fan_accum",
}

// String returns the tag used in field map files
func (t DecodeType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("DecodeType(%d)", int(t))
	}
	return decodeTypeNames[t]
}

// Valid reports whether t is one of the known decode types
func (t DecodeType) Valid() bool {
	return t >= RawHex && t <= FanAccum
}

// Width returns the number of payload bytes read by the decode type
func (t DecodeType) Width() int {
	switch t {
	case WaterAccum, FanAccum:
		return accumWidth
	default:
		return 1
	}
}

// ParseDecodeType converts a field map tag into a DecodeType
func ParseDecodeType(s string) (DecodeType, error) {
	for i, name := range decodeTypeNames {
		if name == s {
			return DecodeType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown decode type %q", s)
}

// FieldSpec describes one named value inside a frame payload
type FieldSpec struct {
	Name    string
	Offset  int
	Type    DecodeType
	Publish bool
}

// FieldMap is an immutable, ordered table of field specs.
// Iteration order is the order fields are decoded and published in.
type FieldMap struct {
	version string
	fields  []FieldSpec
	index   map[string]int
}

// NewFieldMap validates fields and returns a map holding its own copy
func NewFieldMap(version string, fields []FieldSpec) (*FieldMap, error) {
	if version == "" {
		return nil, fmt.Errorf("field map version must not be empty")
	}

	m := &FieldMap{
		version: version,
		fields:  make([]FieldSpec, len(fields)),
		index:   make(map[string]int, len(fields)),
	}
	copy(m.fields, fields)

	for i, f := range m.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field map %s: field %d has no name", version, i)
		}
		if _, dup := m.index[f.Name]; dup {
			return nil, fmt.Errorf("field map %s: duplicate field %q", version, f.Name)
		}
		if f.Offset < 0 {
			return nil, fmt.Errorf("field map %s: field %q has negative offset %d", version, f.Name, f.Offset)
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("field map %s: field %q has unknown decode type %d", version, f.Name, int(f.Type))
		}
		m.index[f.Name] = i
	}

	return m, nil
}

// MustFieldMap is like NewFieldMap but panics on invalid input.
// Intended for package-level built-in tables only.
func MustFieldMap(version string, fields []FieldSpec) *FieldMap {
	m, err := NewFieldMap(version, fields)
	if err != nil {
		panic(fmt.Sprintf("aldes: %v", err))
	}
	return m
}

// Version returns the field map version label
func (m *FieldMap) Version() string {
	return m.version
}

// Len returns the number of fields, published or not
func (m *FieldMap) Len() int {
	return len(m.fields)
}

// Fields returns a copy of the field specs in map order
func (m *FieldMap) Fields() []FieldSpec {
	out := make([]FieldSpec, len(m.fields))
	copy(out, m.fields)
	return out
}

// Lookup returns the spec for name
func (m *FieldMap) Lookup(name string) (FieldSpec, bool) {
	i, ok := m.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return m.fields[i], true
}

// MinPayloadLength returns the payload length needed by the published
// single-byte fields. Frames shorter than this are rejected as a whole.
func (m *FieldMap) MinPayloadLength() int {
	need := 0
	for _, f := range m.fields {
		if !f.Publish || f.Type.Width() != 1 {
			continue
		}
		if f.Offset+1 > need {
			need = f.Offset + 1
		}
	}
	return need
}

// FullPayloadLength returns the payload length needed for every published
// field, multi-byte fields included.
func (m *FieldMap) FullPayloadLength() int {
	need := 0
	for _, f := range m.fields {
		if !f.Publish {
			continue
		}
		if end := f.Offset + f.Type.Width(); end > need {
			need = end
		}
	}
	return need
}

// Built-in field maps

// FieldMapV1 is the table of the first firmware release
var FieldMapV1 = MustFieldMap("v1", []FieldSpec{
	{Name: "Soft", Offset: 4, Type: RawHex, Publish: true},
	{Name: "Etat", Offset: 6, Type: Identity, Publish: true},
	{Name: "Comp_C", Offset: 28, Type: Half, Publish: true},
	{Name: "Comp_R", Offset: 29, Type: Half, Publish: true},
	{Name: "T_hp", Offset: 32, Type: TempLinear, Publish: true},
	{Name: "T_vmc", Offset: 33, Type: TempLinear, Publish: true},
	{Name: "T_evap", Offset: 34, Type: TempLinear, Publish: true},
	{Name: "T_haut", Offset: 36, Type: TempLinear, Publish: true},
	{Name: "T_bas", Offset: 37, Type: TempLinear, Publish: true},
	{Name: "DP", Offset: 38, Type: Identity, Publish: true},
	{Name: "Ventil_flow", Offset: 39, Type: Flow, Publish: true},
	{Name: "Ventil_rpm", Offset: 40, Type: Deca, Publish: true},
})

// FieldMapV2 extends v1 with the setpoint, consumption counters and raw
// status bytes. The byte_NN passthrough fields are not published.
var FieldMapV2 = MustFieldMap("v2", []FieldSpec{
	{Name: "byte_00", Offset: 0, Type: Identity, Publish: false},
	{Name: "byte_01", Offset: 1, Type: Identity, Publish: false},
	{Name: "byte_02", Offset: 2, Type: Identity, Publish: false},
	{Name: "byte_03", Offset: 3, Type: Identity, Publish: false},
	{Name: "Soft", Offset: 4, Type: RawHex, Publish: true},
	{Name: "Soft_rev", Offset: 4, Type: HexTail, Publish: true},
	{Name: "Etat", Offset: 6, Type: Identity, Publish: true},
	{Name: "T_consigne", Offset: 12, Type: BCDTemp, Publish: true},
	{Name: "Comp_C", Offset: 28, Type: Half, Publish: true},
	{Name: "Comp_R", Offset: 29, Type: Half, Publish: true},
	{Name: "T_hp", Offset: 32, Type: TempLinear, Publish: true},
	{Name: "T_vmc", Offset: 33, Type: TempLinear, Publish: true},
	{Name: "T_evap", Offset: 34, Type: TempLinear, Publish: true},
	{Name: "T_haut", Offset: 36, Type: TempLinear, Publish: true},
	{Name: "T_bas", Offset: 37, Type: TempLinear, Publish: true},
	{Name: "DP", Offset: 38, Type: Identity, Publish: true},
	{Name: "Ventil_flow", Offset: 39, Type: Flow, Publish: true},
	{Name: "Ventil_rpm", Offset: 40, Type: Deca, Publish: true},
	{Name: "Conso_eau", Offset: 49, Type: WaterAccum, Publish: true},
	{Name: "Conso_ventil", Offset: 57, Type: FanAccum, Publish: true},
})

var builtinFieldMaps = map[string]*FieldMap{
	FieldMapV1.Version(): FieldMapV1,
	FieldMapV2.Version(): FieldMapV2,
}

// BuiltinFieldMap returns the built-in field map with the given version
func BuiltinFieldMap(version string) (*FieldMap, error) {
	m, ok := builtinFieldMaps[version]
	if !ok {
		return nil, fmt.Errorf("unknown field map version %q (available: %v)", version, FieldMapVersions())
	}
	return m, nil
}

// FieldMapVersions lists the built-in field map versions in sorted order
func FieldMapVersions() []string {
	versions := make([]string, 0, len(builtinFieldMaps))
	for v := range builtinFieldMaps {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}
