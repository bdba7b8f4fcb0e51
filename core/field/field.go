package field

import (
	"fmt"
	"reflect"
)

// Field is one typed value at a known offset within a record or block element.
type Field struct {
	// Name is the schema name of the field.
	Name string
	// Kind selects the binary layout.
	Kind Kind
	// Offset is relative to the enclosing base (record start or block element).
	Offset uint32
	// Size is the byte length of fixed strings, raw blobs and shader payloads.
	Size uint32
	// Address is the resolved pointer-space address. Computed on decode.
	Address int64
	// Tooltip and Ordinal are decorative. Ordinal is the display position
	// within the template and never affects encoding.
	Tooltip string
	Ordinal int
	// Value is the payload. Its concrete type always matches Kind.
	Value Value
}

// New creates a template field with the zero value for kind.
func New(name string, kind Kind, offset uint32) *Field {
	return &Field{Name: name, Kind: kind, Offset: offset, Value: NewValue(kind)}
}

// WithSize sets Size and returns the field.
func (f *Field) WithSize(size uint32) *Field {
	f.Size = size
	return f
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	c := *f
	if f.Value != nil {
		c.Value = f.Value.Clone()
	}
	return &c
}

// CloneAll clones every field, preserving nil entries.
func CloneAll(fields []*Field) []*Field {
	if fields == nil {
		return nil
	}
	out := make([]*Field, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// Validate checks that the value variant matches the kind, recursing into
// block templates and page overrides. Nil page entries are allowed and fall
// back to the template; nil template entries are not.
func (f *Field) Validate() error {
	if f == nil {
		return fmt.Errorf("null field")
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("field %q: invalid kind %d", f.Name, f.Kind)
	}
	want := reflect.TypeOf(NewValue(f.Kind))
	if got := reflect.TypeOf(f.Value); got != want {
		return fmt.Errorf("field %q: kind %s expects %v, got %v", f.Name, f.Kind, want, got)
	}
	b, ok := f.Value.(*Block)
	if !ok {
		return nil
	}
	for j, child := range b.Template {
		if child == nil {
			return fmt.Errorf("%s: null template entry %d", f.Name, j)
		}
		if err := child.Validate(); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	for i, p := range b.Pages {
		if len(p.Fields) > len(b.Template) {
			return fmt.Errorf("%s[%d]: %d fields for a %d field template", f.Name, i, len(p.Fields), len(b.Template))
		}
		for j, child := range p.Fields {
			if child == nil {
				continue
			}
			if child.Kind != b.Template[j].Kind {
				return fmt.Errorf("%s[%d]: field %q is %s, template has %s", f.Name, i, child.Name, child.Kind, b.Template[j].Kind)
			}
			if err := child.Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", f.Name, i, err)
			}
		}
	}
	return nil
}

// Equal reports whether two values are identical, including nested pages.
func Equal(a, b Value) bool {
	return reflect.DeepEqual(a, b)
}

// Walk visits every field depth-first, descending into materialized block pages.
func Walk(fields []*Field, fn func(*Field)) {
	for _, f := range fields {
		if f == nil {
			continue
		}
		fn(f)
		if b, ok := f.Value.(*Block); ok {
			for _, p := range b.Pages {
				Walk(p.Fields, fn)
			}
		}
	}
}
