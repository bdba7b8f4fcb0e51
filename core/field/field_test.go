package field

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, name := range KindNames() {
		k, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, k.String())
	}

	_, err := ParseKind("float64")
	assert.Error(t, err)
}

func TestNewValue_EveryKind(t *testing.T) {
	for k := Kind(0); k < kindCount; k++ {
		f := New("f", k, 0)
		assert.NotNil(t, f.Value, k.String())
		assert.NoError(t, f.Validate(), k.String())
	}
}

func TestValidate_Mismatch(t *testing.T) {
	f := &Field{Name: "bad", Kind: KindFloat32, Value: &Int{}}
	assert.Error(t, f.Validate())

	nested := New("block", KindBlock, 0)
	nested.Value.(*Block).Template = []*Field{{Name: "child", Kind: KindUint8, Value: &Float{}}}
	err := nested.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block")
}

func TestValidate_BlockEntries(t *testing.T) {
	block := func(template []*Field, pages ...Page) *Field {
		f := New("items", KindBlock, 0)
		b := f.Value.(*Block)
		b.Template, b.Pages = template, pages
		return f
	}
	x := func() *Field { return New("x", KindUint16, 0) }

	assert.Error(t, (*Field)(nil).Validate())
	assert.ErrorContains(t, block([]*Field{nil}).Validate(), "null template entry 0")
	assert.NoError(t, block([]*Field{x()}, Page{Fields: []*Field{nil}}).Validate())
	assert.ErrorContains(t, block([]*Field{x()}, Page{Fields: []*Field{x(), x()}}).Validate(), "2 fields for a 1 field template")
	assert.ErrorContains(t, block([]*Field{x()}, Page{Fields: []*Field{New("x", KindFloat32, 0)}}).Validate(), "template has uint16")

	inner := block([]*Field{nil})
	inner.Name = "inner"
	outer := block([]*Field{New("inner", KindBlock, 0)}, Page{Fields: []*Field{inner}})
	err := outer.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items[0]: inner: null template entry 0")
}

func TestEnumSelect(t *testing.T) {
	t.Run("Match", func(t *testing.T) {
		e := &Enum{Options: []Option{{Name: "off", Value: 0}, {Name: "on", Value: 1}}}
		e.Select(1, 4)
		assert.Equal(t, 1, e.Selected)
		assert.Len(t, e.Options, 2)
	})

	t.Run("WidthCast", func(t *testing.T) {
		// 0xFF stored in an enum8 is -1 once sign extended.
		e := &Enum{Options: []Option{{Name: "none", Value: 255}}}
		e.Select(-1, 1)
		assert.Equal(t, 0, e.Selected)
	})

	t.Run("UnknownSynthesized", func(t *testing.T) {
		e := &Enum{Options: []Option{{Name: "a", Value: 0}}}
		e.Select(42, 2)
		require.Len(t, e.Options, 2)
		assert.Equal(t, Option{Name: "42", Value: 42}, e.Options[1])
		assert.Equal(t, 1, e.Selected)
		assert.Equal(t, int32(42), e.V)
	})
}

func TestClone_DoesNotShareState(t *testing.T) {
	tpl := New("mode", KindEnum16, 0)
	tpl.Value.(*Enum).Options = []Option{{Name: "a", Value: 0}}

	c := tpl.Clone()
	c.Value.(*Enum).Select(9, 2)

	assert.Len(t, tpl.Value.(*Enum).Options, 1, "template must not change")
	assert.Equal(t, -1, tpl.Value.(*Enum).Selected)

	raw := New("blob", KindRaw, 0)
	raw.Value.(*Raw).Data = []byte{1, 2, 3}
	rc := raw.Clone()
	rc.Value.(*Raw).Data[0] = 9
	assert.Equal(t, byte(1), raw.Value.(*Raw).Data[0])
}

func TestBlockFieldAt(t *testing.T) {
	child := New("x", KindUint16, 0)
	blk := &Block{
		Count:    2,
		Template: []*Field{child},
		Pages: []Page{
			{Index: 0, Fields: []*Field{nil}},
			{Index: 1, Fields: []*Field{{Name: "x", Kind: KindUint16, Value: &Uint{V: 7}}}},
		},
	}

	assert.Same(t, child, blk.FieldAt(0, 0))
	assert.Equal(t, uint64(7), blk.FieldAt(1, 0).Value.(*Uint).V)
	assert.Same(t, child, blk.FieldAt(5, 0))

	c := blk.Clone().(*Block)
	c.Pages[1].Fields[0].Value.(*Uint).V = 8
	assert.Equal(t, uint64(7), blk.Pages[1].Fields[0].Value.(*Uint).V)
	assert.Nil(t, c.Pages[0].Fields[0])
}

func TestWalk(t *testing.T) {
	blk := New("items", KindBlock, 0)
	b := blk.Value.(*Block)
	b.Template = []*Field{New("ref", KindTagRef, 0)}
	b.Pages = []Page{{Fields: CloneAll(b.Template)}, {Fields: CloneAll(b.Template)}}

	var names []string
	Walk([]*Field{New("head", KindUint8, 0), blk}, func(f *Field) {
		names = append(names, f.Name)
	})
	assert.Equal(t, []string{"head", "items", "ref", "ref"}, names)
}

func TestFieldCBOR(t *testing.T) {
	enum := New("mode", KindEnum8, 4)
	enum.Value.(*Enum).Options = []Option{{Name: "a", Value: 1}}
	enum.Value.(*Enum).Select(3, 1)

	ref := New("target", KindTagRef, 8)
	ref.Tooltip = "spawned object"
	ref.Ordinal = 2
	*ref.Value.(*TagRef) = TagRef{WithGroup: true, Group: 0x62697064, Index: 0xE1230004, GroupName: "bipd", Name: "objects\\marine", Resolved: true}

	blk := New("items", KindBlock, 24)
	b := blk.Value.(*Block)
	b.ElementSize = 4
	b.Template = []*Field{New("v", KindFloat32, 0)}
	page := CloneAll(b.Template)
	page[0].Value.(*Float).V = 1.5
	b.Pages = []Page{{Index: 0, Fields: page}, {Index: 1, Fields: []*Field{nil}}}
	b.Count = 2
	b.Address = 0x1000

	in := []*Field{enum, ref, blk}
	data, err := cbor.Marshal(in)
	require.NoError(t, err)

	var out []*Field
	require.NoError(t, cbor.Unmarshal(data, &out))
	require.Len(t, out, 3)

	e := out[0].Value.(*Enum)
	assert.Equal(t, int32(3), e.V)
	assert.Equal(t, 1, e.Selected)
	assert.Equal(t, "3", e.Options[1].Name)

	assert.Equal(t, "bipd:objects\\marine", out[1].Value.(*TagRef).Target())
	assert.Equal(t, "spawned object", out[1].Tooltip)
	assert.Equal(t, 2, out[1].Ordinal)
	assert.Zero(t, out[0].Ordinal)

	ob := out[2].Value.(*Block)
	assert.Equal(t, 2, ob.Count)
	assert.Equal(t, int64(0x1000), ob.Address)
	assert.Equal(t, float32(1.5), ob.FieldAt(0, 0).Value.(*Float).V)
	assert.Nil(t, ob.Pages[1].Fields[0])
	assert.Equal(t, "v", ob.FieldAt(1, 0).Name)
	assert.Equal(t, uint32(24), out[2].Offset)
}

func TestFieldCBOR_InvalidKind(t *testing.T) {
	data, err := cbor.Marshal(wireField{Name: "x", Kind: kindCount + 3, Value: cborNull})
	require.NoError(t, err)

	var f Field
	assert.Error(t, cbor.Unmarshal(data, &f))
}
