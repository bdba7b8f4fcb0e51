package tags

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable() *Table {
	return NewTable([]*Record{
		{Index: NewDatumIndex(0xE000, 0), Group: "bipd", Name: "objects\\marine"},
		{Index: NewDatumIndex(0xE002, 2), Group: "weap", Name: "weapons\\rifle"},
	})
}

func TestTableLookup(t *testing.T) {
	table := newTestTable()

	tests := []struct {
		name  string
		index DatumIndex
		want  string
	}{
		{"Resolved", NewDatumIndex(0xE002, 2), "weap:weapons\\rifle"},
		{"Null", NullIndex, ""},
		{"EmptySlot", NewDatumIndex(0xE001, 1), ""},
		{"OutOfRange", NewDatumIndex(0xE009, 9), ""},
		{"StaleSalt", NewDatumIndex(0xE005, 2), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := table.Lookup(tt.index)
			if tt.want == "" {
				assert.Nil(t, r)
				return
			}
			require.NotNil(t, r)
			assert.Equal(t, tt.want, r.Key())
		})
	}
}

func TestTableNames(t *testing.T) {
	table := newTestTable()
	assert.Equal(t, []string{"bipd:objects\\marine", "weap:weapons\\rifle"}, table.Names())
	assert.Equal(t, 2, table.Len())
	assert.NotNil(t, table.FindByName("bipd", "objects\\marine"))
	assert.Nil(t, table.FindByName("bipd", "objects\\elite"))

	recs := table.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "bipd", recs[0].Group)
}

func TestSplitKey(t *testing.T) {
	g, n, ok := SplitKey("scnr:levels\\a10:part")
	assert.True(t, ok)
	assert.Equal(t, "scnr", g)
	assert.Equal(t, "levels\\a10:part", n)
}

func TestMagic(t *testing.T) {
	assert.Equal(t, uint32(0x62697064), StringToMagic("bipd"))
	assert.Equal(t, "bipd", MagicToString(0x62697064))
	assert.Equal(t, "snd ", MagicToString(StringToMagic("snd")))
	assert.Equal(t, NullMagic, StringToMagic(""))
	assert.Equal(t, "", MagicToString(NullMagic))
}

func TestStringTable(t *testing.T) {
	st := NewStringTable([]string{"alpha", "beta"})

	s, ok := st.Resolve(0)
	assert.True(t, ok)
	assert.Equal(t, "", s)

	h, ok := st.Find("beta")
	require.True(t, ok)
	s, _ = st.Resolve(h)
	assert.Equal(t, "beta", s)

	_, ok = st.Resolve(99)
	assert.False(t, ok)

	assert.False(t, st.Contains("gamma"))
	g := st.Intern("gamma")
	assert.True(t, st.Contains("gamma"))
	assert.Equal(t, g, st.Intern("gamma"))
	assert.Equal(t, 1, st.Added())
	assert.Equal(t, []string{"", "alpha", "beta", "gamma"}, st.Strings())
}

func TestStringTable_ConcurrentIntern(t *testing.T) {
	st := NewStringTable(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Intern("shared")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, st.Added())
}
