package codec

import (
	"fmt"
	"io"
	"sort"

	"tag-sync/core/field"
	"tag-sync/core/stream"
	"tag-sync/core/tags"
)

// Decoder reads field trees from a byte source.
// A Decoder is not safe for concurrent use; create one per record.
type Decoder struct {
	env     Env
	r       *stream.Reader
	changes *ChangeSet
	refs    map[string]struct{}
}

// NewDecoder creates a decoder over src. changes may be nil.
func NewDecoder(src io.ReaderAt, env Env, changes *ChangeSet) *Decoder {
	return &Decoder{
		env:     env,
		r:       stream.NewReader(src, env.order()),
		changes: changes,
		refs:    make(map[string]struct{}),
	}
}

// Decode decodes one field per template at base and returns them in template order.
func (d *Decoder) Decode(templates []*field.Field, base int64) ([]*field.Field, error) {
	out := make([]*field.Field, len(templates))
	for i, tpl := range templates {
		f, err := d.decodeField(tpl, base)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// References returns the sorted "group:name" identities of every resolved tag
// reference decoded so far.
func (d *Decoder) References() []string {
	refs := make([]string, 0, len(d.refs))
	for r := range d.refs {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}

func (d *Decoder) decodeField(tpl *field.Field, base int64) (*field.Field, error) {
	f := tpl.Clone()
	pos := base + int64(f.Offset)
	f.Address = d.env.address(pos)

	if d.changes != nil && !d.changes.HasChanged(f.Address, f) {
		return f, nil
	}

	d.r.Seek(pos)
	switch v := f.Value.(type) {
	case *field.Comment:
	case *field.Int:
		v.V = d.readSigned(f.Kind.Width())
	case *field.Uint:
		v.V = d.readUnsigned(f.Kind.Width())
	case *field.Float:
		v.V = d.r.F32()
	case *field.Enum:
		width := f.Kind.Width()
		v.Select(int32(d.readSigned(width)), width)
	case *field.String:
		if f.Kind == field.KindUTF16 {
			v.V = d.r.UTF16(int(f.Size))
		} else {
			v.V = d.r.ASCII(int(f.Size))
		}
	case *field.StringID:
		v.V = d.resolveString(d.r.U32())
	case *field.Raw:
		v.Data = d.r.Bytes(int(f.Size))
	case *field.Shader:
		v.Data = d.r.Bytes(int(f.Size))
	case *field.DataRef:
		d.decodeDataRef(v, pos)
	case *field.TagRef:
		d.decodeTagRef(v, pos)
	case *field.Block:
		if err := d.decodeBlock(f.Name, v, pos); err != nil {
			return nil, err
		}
	case *field.Color:
		c := d.r.U32()
		v.B, v.G, v.R, v.A = uint8(c), uint8(c>>8), uint8(c>>16), uint8(c>>24)
	case *field.ColorF:
		if v.Alpha {
			v.A = d.r.F32()
		}
		v.R, v.G, v.B = d.r.F32(), d.r.F32(), d.r.F32()
	case *field.Vector:
		for i := 0; i < f.Kind.Arity(); i++ {
			v.C[i] = d.r.F32()
		}
	case *field.Angle:
		for i := 0; i < f.Kind.Arity(); i++ {
			v.Radians[i] = d.r.F32()
		}
	case *field.Short:
		for i := 0; i < f.Kind.Arity(); i++ {
			v.C[i] = d.r.I16()
		}
	case *field.RangeU16:
		v.Min, v.Max = d.r.U16(), d.r.U16()
	default:
		return nil, fmt.Errorf("decode %s: unsupported value %T", f.Name, f.Value)
	}

	if err := d.r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return f, nil
}

func (d *Decoder) readSigned(width int) int64 {
	switch width {
	case 1:
		return int64(d.r.I8())
	case 2:
		return int64(d.r.I16())
	case 4:
		return int64(d.r.I32())
	}
	return d.r.I64()
}

func (d *Decoder) readUnsigned(width int) uint64 {
	switch width {
	case 1:
		return uint64(d.r.U8())
	case 2:
		return uint64(d.r.U16())
	case 4:
		return uint64(d.r.U32())
	}
	return d.r.U64()
}

func (d *Decoder) resolveString(handle uint32) string {
	if d.env.Strings == nil {
		return ""
	}
	s, _ := d.env.Strings.Resolve(handle)
	return s
}

func (d *Decoder) decodeDataRef(v *field.DataRef, pos int64) {
	l := d.env.Layouts.DataRef
	d.r.Seek(pos + int64(l.Size))
	length := d.r.I32()
	d.r.Seek(pos + int64(l.Pointer))
	addr := d.env.Pointers.Expand(d.r.U32())

	v.Data, v.Text = nil, ""
	if length <= 0 || !d.env.Pointers.ContainsBlock(addr, int64(length)) {
		v.Address, v.Length = 0, 0
		return
	}
	v.Address, v.Length = addr, int(length)

	d.r.Seek(d.env.position(addr))
	if v.IsText() {
		v.Text = d.r.ASCII(v.Length)
	} else {
		v.Data = d.r.Bytes(v.Length)
	}
}

func (d *Decoder) decodeTagRef(v *field.TagRef, pos int64) {
	group := tags.NullMagic
	var index uint32
	if v.WithGroup {
		l := d.env.Layouts.TagRef
		d.r.Seek(pos + int64(l.Group))
		group = d.r.U32()
		d.r.Seek(pos + int64(l.Index))
		index = d.r.U32()
	} else {
		index = d.r.U32()
	}

	v.Group, v.Index = group, index
	v.GroupName, v.Name, v.Resolved = "", "", false

	if d.env.Records == nil {
		return
	}
	rec := d.env.Records.Lookup(tags.DatumIndex(index))
	if rec == nil {
		return
	}
	v.GroupName, v.Name, v.Resolved = rec.Group, rec.Name, true
	d.refs[rec.Key()] = struct{}{}
}

func (d *Decoder) decodeBlock(name string, v *field.Block, pos int64) error {
	l := d.env.Layouts.Block
	d.r.Seek(pos + int64(l.Count))
	count := d.r.I32()
	d.r.Seek(pos + int64(l.Pointer))
	addr := d.env.Pointers.Expand(d.r.U32())
	if err := d.r.Err(); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	if !validBlock(d.env, addr, int64(count), v.ElementSize) {
		count, addr = 0, 0
	}

	prior := v.Pages
	v.Count, v.Address = int(count), addr
	v.Pages, v.CurrentIndex = nil, -1
	if count == 0 {
		return nil
	}

	start := d.env.position(addr)
	v.Pages = make([]field.Page, count)
	for i := range v.Pages {
		elemBase := start + int64(i)*int64(v.ElementSize)
		page := field.Page{Index: i, Fields: make([]*field.Field, len(v.Template))}
		for j := range v.Template {
			child, err := d.decodeField(pageTemplate(prior, v.Template, i, j), elemBase)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			page.Fields[j] = child
		}
		v.Pages[i] = page
	}
	v.CurrentIndex = 0
	return nil
}

// validBlock checks a block header. Elements without a size cannot be placed.
func validBlock(env Env, addr, count int64, elemSize uint32) bool {
	if count < 0 || (count > 0 && elemSize == 0) {
		return false
	}
	return env.Pointers.ContainsBlock(addr, count*int64(elemSize))
}

// pageTemplate returns the page-local field at (i, j) or the block template entry.
func pageTemplate(pages []field.Page, template []*field.Field, i, j int) *field.Field {
	if i < len(pages) && j < len(pages[i].Fields) && pages[i].Fields[j] != nil {
		return pages[i].Fields[j]
	}
	return template[j]
}
