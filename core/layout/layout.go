// Package layout loads record schemas from YAML documents.
//
// A layout file holds one or more documents, each describing the fields of one
// record group:
//
//	group: bipd
//	fields:
//	  - {name: flags, kind: flags32, offset: 0x00}
//	  - name: mode
//	    kind: enum16
//	    offset: 0x04
//	    options: [{name: none, value: 0}, {name: fast, value: 1}]
//	  - name: items
//	    kind: tagblock
//	    offset: 0x3C
//	    element_size: 8
//	    fields:
//	      - {name: id, kind: uint16, offset: 0}
//
// Parsed templates are immutable and shared by every decode.
package layout

import (
	"errors"
	"fmt"
	"io"

	"tag-sync/core/field"

	"gopkg.in/yaml.v3"
)

type document struct {
	Group  string     `yaml:"group"`
	Fields []fieldDoc `yaml:"fields"`
}

type optionDoc struct {
	Name  string `yaml:"name"`
	Value int32  `yaml:"value"`
}

type fieldDoc struct {
	Name        string      `yaml:"name"`
	Kind        string      `yaml:"kind"`
	Offset      uint32      `yaml:"offset"`
	Size        uint32      `yaml:"size"`
	ElementSize uint32      `yaml:"element_size"`
	Tooltip     string      `yaml:"tooltip"`
	Options     []optionDoc `yaml:"options"`
	WithGroup   *bool       `yaml:"with_group"`
	Format      string      `yaml:"format"`
	Alpha       bool        `yaml:"alpha"`
	Fields      []fieldDoc  `yaml:"fields"`
}

// Schema is the template list of one group.
type Schema struct {
	Group  string
	Fields []*field.Field
}

// Parse reads every document from r.
func Parse(r io.Reader) ([]Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []Schema
	for {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if doc.Group == "" {
			return nil, errors.New("layout document without group")
		}
		fields, err := buildFields(doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", doc.Group, err)
		}
		out = append(out, Schema{Group: doc.Group, Fields: fields})
	}
	return out, nil
}

func buildFields(docs []fieldDoc) ([]*field.Field, error) {
	fields := make([]*field.Field, 0, len(docs))
	for i, d := range docs {
		f, err := buildField(d)
		if err != nil {
			return nil, err
		}
		f.Ordinal = i
		fields = append(fields, f)
	}
	return fields, nil
}

func buildField(d fieldDoc) (*field.Field, error) {
	kind, err := field.ParseKind(d.Kind)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", d.Name, err)
	}
	f := field.New(d.Name, kind, d.Offset).WithSize(d.Size)
	f.Tooltip = d.Tooltip

	switch v := f.Value.(type) {
	case *field.String, *field.Raw, *field.Shader:
		if d.Size == 0 {
			return nil, fmt.Errorf("field %q: %s needs a size", d.Name, kind)
		}
	case *field.Enum:
		for _, o := range d.Options {
			v.Options = append(v.Options, field.Option{Name: o.Name, Value: o.Value})
		}
	case *field.TagRef:
		if d.WithGroup != nil {
			v.WithGroup = *d.WithGroup
		}
	case *field.DataRef:
		v.Format = d.Format
	case *field.Color:
		v.Alpha = d.Alpha
	case *field.ColorF:
		v.Alpha = d.Alpha
	case *field.Block:
		if d.ElementSize == 0 {
			return nil, fmt.Errorf("field %q: tagblock needs an element_size", d.Name)
		}
		v.ElementSize = d.ElementSize
		children, err := buildFields(d.Fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		v.Template = children
	}
	return f, nil
}
