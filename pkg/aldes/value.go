// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind tells which member of a Value is set
type ValueKind int

// Value kinds
const (
	KindUnavailable ValueKind = iota
	KindInt
	KindFloat
	KindText
)

// String returns the kind name
func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "unavailable"
	}
}

// Value is a decoded field value: an integer, a float or hex text.
// The zero Value is unavailable.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
}

// IntValue returns an integer value
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue returns a float value
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// TextValue returns a text value
func TextValue(v string) Value { return Value{kind: KindText, s: v} }

// Unavailable returns the value used for fields that could not be decoded
func Unavailable() Value { return Value{} }

// Kind returns the value kind
func (v Value) Kind() ValueKind { return v.kind }

// Available reports whether the value holds data
func (v Value) Available() bool { return v.kind != KindUnavailable }

// Int returns the integer member and whether the value is an integer
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the value as float64. Integers are converted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Text returns the text member and whether the value is text
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Interface returns int64, float64, string or nil
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	}
	return nil
}

// String renders the value the way it is published: integers in decimal,
// floats with at least one fractional digit ("23.0"), text verbatim.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".NI") {
			s += ".0"
		}
		return s
	case KindText:
		return v.s
	}
	return "unavailable"
}

// MarshalJSON encodes unavailable values as null
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Equal reports whether both values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	}
	return true
}
