// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// commandDocument is the JSON command form received from MQTT:
//
//	{"type": "confort", "params": {"duration": 3}}
type commandDocument struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// ParseCommand parses the JSON wire form of a command.
// Numbers are kept as json.Number so integer parameters stay exact.
func ParseCommand(data []byte) (Command, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc commandDocument
	if err := dec.Decode(&doc); err != nil {
		return Command{}, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidCommand, err)
	}

	kind := CommandKind(strings.TrimSpace(doc.Type))
	if kind == "" {
		return Command{}, fmt.Errorf("%w: missing type", ErrInvalidCommand)
	}
	if !kind.Valid() {
		return Command{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, kind)
	}

	return Command{Kind: kind, Params: doc.Params}, nil
}

// Valid reports whether k is a supported command kind
func (k CommandKind) Valid() bool {
	for _, known := range CommandKinds {
		if k == known {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the command in the form ParseCommand reads
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(commandDocument{Type: string(c.Kind), Params: c.Params})
}

// numericParam extracts a float64 from the numeric types produced by
// encoding/json, fxamacker/cbor and the command builders.
func numericParam(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, finite(f)
	case float64:
		return n, finite(n)
	case float32:
		return float64(n), finite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint8:
		return float64(n), true
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
