// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"bytes"
	"encoding/json"
	"time"
)

// Field is one decoded name/value pair
type Field struct {
	Name  string
	Value Value
}

// DecodedFrame holds the published fields of one frame in field map order
type DecodedFrame struct {
	version   string
	raw       []byte
	fields    []Field
	index     map[string]int
	errs      []*FieldError
	timestamp time.Time
}

func newDecodedFrame(version string, raw []byte, capacity int) *DecodedFrame {
	rawCopy := make([]byte, len(raw))
	copy(rawCopy, raw)
	return &DecodedFrame{
		version:   version,
		raw:       rawCopy,
		fields:    make([]Field, 0, capacity),
		index:     make(map[string]int, capacity),
		timestamp: time.Now(),
	}
}

func (d *DecodedFrame) add(name string, v Value) {
	d.index[name] = len(d.fields)
	d.fields = append(d.fields, Field{Name: name, Value: v})
}

// FieldMapVersion returns the version of the field map used to decode
func (d *DecodedFrame) FieldMapVersion() string {
	return d.version
}

// Raw returns the frame bytes, checksum included
func (d *DecodedFrame) Raw() []byte {
	return d.raw
}

// Timestamp returns the decode time
func (d *DecodedFrame) Timestamp() time.Time {
	return d.timestamp
}

// Fields returns every decoded field, unavailable ones included
func (d *DecodedFrame) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Available returns only the fields holding a value
func (d *DecodedFrame) Available() []Field {
	out := make([]Field, 0, len(d.fields))
	for _, f := range d.fields {
		if f.Value.Available() {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of decoded fields
func (d *DecodedFrame) Len() int {
	return len(d.fields)
}

// Get returns the value decoded for name
func (d *DecodedFrame) Get(name string) (Value, bool) {
	i, ok := d.index[name]
	if !ok {
		return Value{}, false
	}
	return d.fields[i].Value, true
}

// Errors returns the fields that were reported unavailable
func (d *DecodedFrame) Errors() []*FieldError {
	return d.errs
}

// Map returns name -> int64/float64/string for the available fields
func (d *DecodedFrame) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(d.fields))
	for _, f := range d.fields {
		if f.Value.Available() {
			m[f.Name] = f.Value.Interface()
		}
	}
	return m
}

// MarshalJSON encodes the fields as an object in field map order
func (d *DecodedFrame) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
