package field

import "strconv"

// Value is the payload of a field. The set of implementations is closed.
type Value interface {
	// Clone returns a deep copy that shares no mutable state with the receiver.
	Clone() Value
	sealed()
}

// Comment is a schema-only annotation. It occupies no bytes.
type Comment struct {
	Text string `cbor:"text,omitempty"`
}

// Int holds a signed integer of the field's declared width.
type Int struct {
	V int64 `cbor:"v"`
}

// Uint holds an unsigned integer or a flags bitmask of the field's declared width.
type Uint struct {
	V uint64 `cbor:"v"`
}

// Float holds a single float32.
type Float struct {
	V float32 `cbor:"v"`
}

// Option is one named enum value.
type Option struct {
	Name  string `cbor:"name"`
	Value int32  `cbor:"value"`
}

// Enum holds the raw enum value plus the schema's option set.
// Selected indexes Options, or is -1 before decoding.
type Enum struct {
	V        int32    `cbor:"v"`
	Options  []Option `cbor:"options,omitempty"`
	Selected int      `cbor:"selected"`
}

// String holds a fixed-length ASCII or UTF-16 string.
type String struct {
	V string `cbor:"v"`
}

// StringID holds the text behind an interned string handle.
type StringID struct {
	V string `cbor:"v"`
}

// Raw holds an inline byte blob of Field.Size bytes.
type Raw struct {
	Data []byte `cbor:"data"`
}

// Shader holds an opaque shader payload of Field.Size bytes.
type Shader struct {
	Data []byte `cbor:"data"`
}

// DataRef holds a (pointer, length) reference to an external buffer and its
// contents. Format "asciiz" stores the contents in Text, anything else in Data.
type DataRef struct {
	Address int64  `cbor:"address"`
	Length  int    `cbor:"length"`
	Format  string `cbor:"format,omitempty"`
	Data    []byte `cbor:"data,omitempty"`
	Text    string `cbor:"text,omitempty"`
}

// FormatASCIIZ marks a data reference whose contents are a terminated string.
const FormatASCIIZ = "asciiz"

// IsText reports whether the reference contents are stored as text.
func (d *DataRef) IsText() bool {
	return d.Format == FormatASCIIZ
}

// TagRef is a cross-record reference. Group is the raw group magic, Index the
// raw datum index. GroupName and Name are set only when the reference resolved.
type TagRef struct {
	WithGroup bool   `cbor:"with_group"`
	Group     uint32 `cbor:"group"`
	Index     uint32 `cbor:"index"`
	GroupName string `cbor:"group_name,omitempty"`
	Name      string `cbor:"name,omitempty"`
	Resolved  bool   `cbor:"resolved"`
}

// Target returns the "group:name" identity of a resolved reference.
func (t *TagRef) Target() string {
	if !t.Resolved {
		return ""
	}
	return t.GroupName + ":" + t.Name
}

// Page is one block element. A nil entry in Fields falls back to the block template.
type Page struct {
	Index  int      `cbor:"index"`
	Fields []*Field `cbor:"fields"`
}

// Block is a repeating pointer-addressed structure.
type Block struct {
	Count        int      `cbor:"count"`
	Address      int64    `cbor:"address"`
	ElementSize  uint32   `cbor:"element_size"`
	CurrentIndex int      `cbor:"current_index"`
	Template     []*Field `cbor:"template"`
	Pages        []Page   `cbor:"pages,omitempty"`
}

// FieldAt returns the field at position j of page i, falling back to the template.
func (b *Block) FieldAt(i, j int) *Field {
	if i >= 0 && i < len(b.Pages) && j < len(b.Pages[i].Fields) {
		if f := b.Pages[i].Fields[j]; f != nil {
			return f
		}
	}
	return b.Template[j]
}

// Size returns the number of bytes the elements occupy.
func (b *Block) Size() int64 {
	return int64(b.Count) * int64(b.ElementSize)
}

// Color is a 32-bit packed color. Without Alpha the A channel is not significant.
type Color struct {
	Alpha bool  `cbor:"alpha"`
	A     uint8 `cbor:"a"`
	R     uint8 `cbor:"r"`
	G     uint8 `cbor:"g"`
	B     uint8 `cbor:"b"`
}

// ColorF is a float-channel color. A is only stored when Alpha is set.
type ColorF struct {
	Alpha bool    `cbor:"alpha"`
	A     float32 `cbor:"a"`
	R     float32 `cbor:"r"`
	G     float32 `cbor:"g"`
	B     float32 `cbor:"b"`
}

// Vector holds up to four float32 components; Kind.Arity tells how many are stored.
// Vectors, points, planes and float ranges share this shape.
type Vector struct {
	C [4]float32 `cbor:"c"`
}

// Angle holds up to three angles in radians; degree kinds and degree ranges share it.
type Angle struct {
	Radians [3]float32 `cbor:"radians"`
}

// Short holds up to four int16 components for rect16, quat16 and point16.
type Short struct {
	C [4]int16 `cbor:"c"`
}

// RangeU16 is an inclusive uint16 bound pair.
type RangeU16 struct {
	Min uint16 `cbor:"min"`
	Max uint16 `cbor:"max"`
}

func (v *Comment) Clone() Value  { c := *v; return &c }
func (v *Int) Clone() Value      { c := *v; return &c }
func (v *Uint) Clone() Value     { c := *v; return &c }
func (v *Float) Clone() Value    { c := *v; return &c }
func (v *String) Clone() Value   { c := *v; return &c }
func (v *StringID) Clone() Value { c := *v; return &c }
func (v *TagRef) Clone() Value   { c := *v; return &c }
func (v *Color) Clone() Value    { c := *v; return &c }
func (v *ColorF) Clone() Value   { c := *v; return &c }
func (v *Vector) Clone() Value   { c := *v; return &c }
func (v *Angle) Clone() Value    { c := *v; return &c }
func (v *Short) Clone() Value    { c := *v; return &c }
func (v *RangeU16) Clone() Value { c := *v; return &c }

func (v *Enum) Clone() Value {
	c := *v
	c.Options = append([]Option(nil), v.Options...)
	return &c
}

func (v *Raw) Clone() Value {
	return &Raw{Data: cloneBytes(v.Data)}
}

func (v *Shader) Clone() Value {
	return &Shader{Data: cloneBytes(v.Data)}
}

func (v *DataRef) Clone() Value {
	c := *v
	c.Data = cloneBytes(v.Data)
	return &c
}

// Clone copies the pages. The template is immutable and stays shared.
func (v *Block) Clone() Value {
	c := *v
	if v.Pages != nil {
		c.Pages = make([]Page, len(v.Pages))
		for i, p := range v.Pages {
			c.Pages[i] = Page{Index: p.Index, Fields: CloneAll(p.Fields)}
		}
	}
	return &c
}

func (*Comment) sealed()  {}
func (*Int) sealed()      {}
func (*Uint) sealed()     {}
func (*Float) sealed()    {}
func (*Enum) sealed()     {}
func (*String) sealed()   {}
func (*StringID) sealed() {}
func (*Raw) sealed()      {}
func (*Shader) sealed()   {}
func (*DataRef) sealed()  {}
func (*TagRef) sealed()   {}
func (*Block) sealed()    {}
func (*Color) sealed()    {}
func (*ColorF) sealed()   {}
func (*Vector) sealed()   {}
func (*Angle) sealed()    {}
func (*Short) sealed()    {}
func (*RangeU16) sealed() {}

// Select points the enum at the option matching raw, comparing at the given
// byte width. An unmatched value gets a synthesized option named after it.
func (v *Enum) Select(raw int32, width int) {
	v.V = raw
	for i, opt := range v.Options {
		if sameAtWidth(opt.Value, raw, width) {
			v.Selected = i
			return
		}
	}
	v.Options = append(v.Options, Option{Name: strconv.Itoa(int(raw)), Value: raw})
	v.Selected = len(v.Options) - 1
}

func sameAtWidth(a, b int32, width int) bool {
	switch width {
	case 1:
		return int8(a) == int8(b)
	case 2:
		return int16(a) == int16(b)
	}
	return a == b
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// NewValue returns the zero value for a kind.
func NewValue(k Kind) Value {
	switch k {
	case KindComment:
		return &Comment{}
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return &Int{}
	case KindUint8, KindUint16, KindUint32, KindUint64,
		KindFlags8, KindFlags16, KindFlags32, KindFlags64:
		return &Uint{}
	case KindFloat32:
		return &Float{}
	case KindEnum8, KindEnum16, KindEnum32:
		return &Enum{Selected: -1}
	case KindASCII, KindUTF16:
		return &String{}
	case KindStringID:
		return &StringID{}
	case KindRaw:
		return &Raw{}
	case KindShader:
		return &Shader{}
	case KindDataRef:
		return &DataRef{}
	case KindTagRef:
		return &TagRef{WithGroup: true}
	case KindBlock:
		return &Block{CurrentIndex: -1}
	case KindColor32:
		return &Color{}
	case KindColorF:
		return &ColorF{}
	case KindVector2, KindVector3, KindVector4, KindPoint2, KindPoint3,
		KindPlane2, KindPlane3, KindRangeFloat32:
		return &Vector{}
	case KindDegree, KindDegree2, KindDegree3, KindRangeDegree:
		return &Angle{}
	case KindRect16, KindQuat16, KindPoint16:
		return &Short{}
	case KindRangeUint16:
		return &RangeU16{}
	}
	return nil
}
