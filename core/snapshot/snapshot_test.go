package snapshot

import (
	"errors"
	"testing"

	"tag-sync/core/field"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFields() []*field.Field {
	radius := field.New("radius", field.KindFloat32, 8)
	radius.Value.(*field.Float).V = 2.5

	items := field.New("items", field.KindBlock, 0x3C)
	b := items.Value.(*field.Block)
	b.ElementSize = 4
	b.Template = []*field.Field{field.New("ref", field.KindTagRef, 0)}
	page := field.CloneAll(b.Template)
	*page[0].Value.(*field.TagRef) = field.TagRef{WithGroup: true, GroupName: "weap", Name: "rifle", Resolved: true}
	b.Count, b.Address, b.CurrentIndex = 1, 0x1080, 0
	b.Pages = []field.Page{{Index: 0, Fields: page}}

	return []*field.Field{radius, items}
}

func TestMarshalUnmarshal(t *testing.T) {
	in := New("bipd", "objects\\marine", sampleFields(), []string{"weap:rifle"})
	data, err := Marshal(in)
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "bipd:objects\\marine", out.Key())
	assert.Equal(t, []string{"weap:rifle"}, out.Refs)
	require.Len(t, out.Fields, 2)
	assert.Equal(t, float32(2.5), out.Fields[0].Value.(*field.Float).V)

	blk := out.Fields[1].Value.(*field.Block)
	assert.Equal(t, "weap:rifle", blk.FieldAt(0, 0).Value.(*field.TagRef).Target())
}

func TestMarshal_Deterministic(t *testing.T) {
	a, err := Marshal(New("bipd", "m", sampleFields(), nil))
	require.NoError(t, err)
	b, err := Marshal(New("bipd", "m", sampleFields(), nil))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUnmarshal_Errors(t *testing.T) {
	t.Run("Garbage", func(t *testing.T) {
		_, err := Unmarshal([]byte{0xff, 0x00})
		assert.Error(t, err)
	})

	t.Run("Version", func(t *testing.T) {
		s := New("bipd", "m", nil, nil)
		s.Version = 99
		data, err := cbor.Marshal(s)
		require.NoError(t, err)

		_, err = Unmarshal(data)
		assert.True(t, errors.Is(err, ErrVersion))
	})

	t.Run("NullTemplateEntry", func(t *testing.T) {
		items := field.New("items", field.KindBlock, 0)
		items.Value.(*field.Block).Template = []*field.Field{nil}
		data, err := Marshal(New("bipd", "m", []*field.Field{items}, nil))
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			_, err = Unmarshal(data)
		})
		assert.ErrorContains(t, err, "null template entry")
	})

	t.Run("NullTemplateInPage", func(t *testing.T) {
		inner := field.New("inner", field.KindBlock, 0)
		inner.Value.(*field.Block).Template = []*field.Field{nil}
		outer := field.New("outer", field.KindBlock, 0)
		b := outer.Value.(*field.Block)
		b.Template = []*field.Field{field.New("inner", field.KindBlock, 0)}
		b.Pages = []field.Page{{Index: 0, Fields: []*field.Field{inner}}}
		data, err := Marshal(New("bipd", "m", []*field.Field{outer}, nil))
		require.NoError(t, err)

		_, err = Unmarshal(data)
		assert.ErrorContains(t, err, "null template entry")
	})

	t.Run("NullField", func(t *testing.T) {
		s := New("bipd", "m", []*field.Field{nil}, nil)
		data, err := cbor.Marshal(s)
		require.NoError(t, err)

		_, err = Unmarshal(data)
		assert.Error(t, err)
	})
}
