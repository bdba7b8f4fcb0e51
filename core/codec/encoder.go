package codec

import (
	"fmt"
	"io"

	"tag-sync/core/field"
	"tag-sync/core/stream"
	"tag-sync/core/tags"
)

// ReadWriterAt is the destination of an Encoder. Reads are used to materialize
// block elements that have no page values.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Encoder writes field trees back to their packed layout.
// An Encoder is not safe for concurrent use; callers serialize writes to a
// shared destination.
type Encoder struct {
	env     Env
	dst     ReadWriterAt
	w       *stream.Writer
	changes *ChangeSet
}

// NewEncoder creates an encoder over dst. changes may be nil, in which case
// every field is written.
func NewEncoder(dst ReadWriterAt, env Env, changes *ChangeSet) *Encoder {
	return &Encoder{
		env:     env,
		dst:     dst,
		w:       stream.NewWriter(dst, env.order()),
		changes: changes,
	}
}

// Encode writes fields at base.
func (e *Encoder) Encode(fields []*field.Field, base int64) error {
	for _, f := range fields {
		if f == nil {
			continue
		}
		if err := e.encodeField(f, base); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeField(f *field.Field, base int64) error {
	pos := base + int64(f.Offset)
	write := e.changes == nil || e.changes.HasChanged(e.env.address(pos), f)

	if b, ok := f.Value.(*field.Block); ok {
		return e.encodeBlock(f.Name, b, pos, write)
	}
	if !write {
		return nil
	}

	e.w.Seek(pos)
	switch v := f.Value.(type) {
	case *field.Comment:
	case *field.Int:
		e.writeInt(f.Kind.Width(), uint64(v.V))
	case *field.Uint:
		e.writeInt(f.Kind.Width(), v.V)
	case *field.Float:
		e.w.PutF32(v.V)
	case *field.Enum:
		e.writeInt(f.Kind.Width(), uint64(int64(v.V)))
	case *field.String:
		if f.Kind == field.KindUTF16 {
			e.w.PutUTF16(v.V, int(f.Size))
		} else {
			e.w.PutASCII(v.V, int(f.Size))
		}
	case *field.StringID:
		e.w.PutU32(e.stringHandle(v.V))
	case *field.Raw:
		e.w.PutFixed(v.Data, int(f.Size))
	case *field.Shader:
		e.w.PutFixed(v.Data, int(f.Size))
	case *field.DataRef:
		e.encodeDataRef(v, pos)
	case *field.TagRef:
		e.encodeTagRef(v, pos)
	case *field.Color:
		e.w.PutU32(uint32(v.B) | uint32(v.G)<<8 | uint32(v.R)<<16 | uint32(v.A)<<24)
	case *field.ColorF:
		if v.Alpha {
			e.w.PutF32(v.A)
		}
		e.w.PutF32(v.R)
		e.w.PutF32(v.G)
		e.w.PutF32(v.B)
	case *field.Vector:
		for i := 0; i < f.Kind.Arity(); i++ {
			e.w.PutF32(v.C[i])
		}
	case *field.Angle:
		for i := 0; i < f.Kind.Arity(); i++ {
			e.w.PutF32(v.Radians[i])
		}
	case *field.Short:
		for i := 0; i < f.Kind.Arity(); i++ {
			e.w.PutI16(v.C[i])
		}
	case *field.RangeU16:
		e.w.PutU16(v.Min)
		e.w.PutU16(v.Max)
	default:
		return fmt.Errorf("encode %s: unsupported value %T", f.Name, f.Value)
	}

	if err := e.w.Err(); err != nil {
		return fmt.Errorf("encode %s: %w", f.Name, err)
	}
	return nil
}

// writeInt writes the low width bytes of v.
func (e *Encoder) writeInt(width int, v uint64) {
	switch width {
	case 1:
		e.w.PutU8(uint8(v))
	case 2:
		e.w.PutU16(uint16(v))
	case 4:
		e.w.PutU32(uint32(v))
	default:
		e.w.PutU64(v)
	}
}

// stringHandle finds s in the string table. Unknown strings are interned in
// file mode and written as the null handle otherwise.
func (e *Encoder) stringHandle(s string) uint32 {
	if s == "" || e.env.Strings == nil {
		return 0
	}
	if h, ok := e.env.Strings.Find(s); ok {
		return h
	}
	if e.env.Mode == ModeFile {
		return e.env.Strings.Intern(s)
	}
	return 0
}

func (e *Encoder) encodeDataRef(v *field.DataRef, pos int64) {
	content := v.Data
	if v.IsText() {
		content = stream.EncodeLatin1(v.Text)
	}

	length, addr := int64(v.Length), v.Address
	if length <= 0 || !e.env.Pointers.ContainsBlock(addr, length) {
		length, addr = 0, 0
	}

	l := e.env.Layouts.DataRef
	e.w.Seek(pos + int64(l.Size))
	e.w.PutI32(int32(length))
	e.w.Seek(pos + int64(l.Pointer))
	e.w.PutU32(e.env.Pointers.Contract(addr))

	if length > 0 {
		e.w.Seek(e.env.position(addr))
		e.w.PutFixed(content, int(length))
	}
}

// encodeTagRef re-resolves the target by name in the destination table. A
// missing target is written with the null datum index.
func (e *Encoder) encodeTagRef(v *field.TagRef, pos int64) {
	group, index := v.Group, uint32(tags.NullIndex)
	if v.Resolved && e.env.Records != nil {
		if rec := e.env.Records.FindByName(v.GroupName, v.Name); rec != nil {
			group, index = tags.StringToMagic(rec.Group), uint32(rec.Index)
		}
	}

	if !v.WithGroup {
		e.w.PutU32(index)
		return
	}
	l := e.env.Layouts.TagRef
	e.w.Seek(pos + int64(l.Group))
	e.w.PutU32(group)
	e.w.Seek(pos + int64(l.Index))
	e.w.PutU32(index)
}

// encodeBlock writes the header when write is set, then visits every element.
// Elements are placed with the current count, so a header that no longer
// validates is written as (0, 0) and its elements are left alone.
func (e *Encoder) encodeBlock(name string, b *field.Block, pos int64, write bool) error {
	count, addr := int64(b.Count), b.Address
	if !validBlock(e.env, addr, count, b.ElementSize) {
		count, addr = 0, 0
	}

	if write {
		l := e.env.Layouts.Block
		e.w.Seek(pos + int64(l.Count))
		e.w.PutI32(int32(count))
		e.w.Seek(pos + int64(l.Pointer))
		e.w.PutU32(e.env.Pointers.Contract(addr))
		if err := e.w.Err(); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
	}
	if count == 0 {
		return nil
	}

	start := e.env.position(addr)
	for i := 0; i < int(count); i++ {
		elemBase := start + int64(i)*int64(b.ElementSize)
		for j, tpl := range b.Template {
			var child *field.Field
			if i < len(b.Pages) && j < len(b.Pages[i].Fields) {
				child = b.Pages[i].Fields[j]
			}
			if child == nil {
				if e.changes != nil {
					continue
				}
				m, err := e.materialize(tpl, elemBase)
				if err != nil {
					return fmt.Errorf("%s[%d]: %w", name, i, err)
				}
				child = m
			}
			if err := e.encodeField(child, elemBase); err != nil {
				return fmt.Errorf("%s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}

// materialize reads an element field from the destination so it can be
// written back unchanged.
func (e *Encoder) materialize(tpl *field.Field, base int64) (*field.Field, error) {
	fields, err := NewDecoder(e.dst, e.env, nil).Decode([]*field.Field{tpl}, base)
	if err != nil {
		return nil, err
	}
	return fields[0], nil
}
