// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aldes

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fieldMapDocument is the on-disk form of a field map:
//
//	version: v2-site
//	fields:
//	  - {name: Etat, offset: 6, type: identity, publish: true}
type fieldMapDocument struct {
	Version string          `yaml:"version"`
	Fields  []fieldDocument `yaml:"fields"`
}

type fieldDocument struct {
	Name    string `yaml:"name"`
	Offset  int    `yaml:"offset"`
	Type    string `yaml:"type"`
	Publish *bool  `yaml:"publish"`
}

// LoadFieldMap reads a single YAML field map document from r.
// Fields publish by default unless `publish: false` is given.
func LoadFieldMap(r io.Reader) (*FieldMap, error) {
	var doc fieldMapDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse field map: %w", err)
	}

	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("field map %q has no fields", doc.Version)
	}

	specs := make([]FieldSpec, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		t, err := ParseDecodeType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		publish := true
		if f.Publish != nil {
			publish = *f.Publish
		}
		specs = append(specs, FieldSpec{
			Name:    f.Name,
			Offset:  f.Offset,
			Type:    t,
			Publish: publish,
		})
	}

	return NewFieldMap(doc.Version, specs)
}

// LoadFieldMapFile reads a YAML field map from path
func LoadFieldMapFile(path string) (*FieldMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open field map %s: %w", path, err)
	}
	defer f.Close()

	return LoadFieldMap(f)
}

// MarshalYAML renders the field map in the format LoadFieldMap reads
func (m *FieldMap) MarshalYAML() (interface{}, error) {
	doc := fieldMapDocument{Version: m.version}
	for _, f := range m.fields {
		publish := f.Publish
		doc.Fields = append(doc.Fields, fieldDocument{
			Name:    f.Name,
			Offset:  f.Offset,
			Type:    f.Type.String(),
			Publish: &publish,
		})
	}
	return doc, nil
}
