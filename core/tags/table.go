package tags

import (
	"sort"
	"strings"
)

// DatumIndex is a salted record handle: salt in the high 16 bits, slot in the low 16.
type DatumIndex uint32

// NullIndex is the sentinel for "no record".
const NullIndex DatumIndex = 0xFFFFFFFF

// NullMagic is the sentinel for "no group".
const NullMagic uint32 = 0xFFFFFFFF

// NewDatumIndex builds a datum index from its salt and slot.
func NewDatumIndex(salt, slot uint16) DatumIndex {
	return DatumIndex(uint32(salt)<<16 | uint32(slot))
}

// Salt returns the high half.
func (d DatumIndex) Salt() uint16 { return uint16(d >> 16) }

// Slot returns the arena position.
func (d DatumIndex) Slot() int { return int(uint16(d)) }

// IsValid reports whether d is not the null index.
func (d DatumIndex) IsValid() bool { return d != NullIndex }

// Record is one entry of the record table.
type Record struct {
	// Index is the full datum index of the record.
	Index DatumIndex
	// Group is the four-character group magic, e.g. "bipd".
	Group string
	// Name is the record path.
	Name string
	// Meta is where the record's field data starts: a file offset in file
	// mode or an address in memory mode.
	Meta int64
}

// Key returns the "group:name" identity.
func (r *Record) Key() string {
	return Key(r.Group, r.Name)
}

// Key joins a group and a name into a reference identity.
func Key(group, name string) string {
	return group + ":" + name
}

// SplitKey is the inverse of Key.
func SplitKey(key string) (group, name string, ok bool) {
	return strings.Cut(key, ":")
}

// Table is the record arena of one container.
type Table struct {
	slots  []*Record
	byName map[string]*Record
}

// NewTable builds a table. Records land in the slot named by their datum index.
func NewTable(records []*Record) *Table {
	t := &Table{byName: make(map[string]*Record, len(records))}
	for _, r := range records {
		if r == nil || !r.Index.IsValid() {
			continue
		}
		slot := r.Index.Slot()
		for len(t.slots) <= slot {
			t.slots = append(t.slots, nil)
		}
		t.slots[slot] = r
		t.byName[r.Key()] = r
	}
	return t
}

// Lookup resolves a datum index. It returns nil for null, out of range, empty
// or stale slots.
func (t *Table) Lookup(d DatumIndex) *Record {
	if !d.IsValid() {
		return nil
	}
	slot := d.Slot()
	if slot >= len(t.slots) {
		return nil
	}
	r := t.slots[slot]
	if r == nil || r.Index != d {
		return nil
	}
	return r
}

// FindByName resolves a record by group and name.
func (t *Table) FindByName(group, name string) *Record {
	return t.byName[Key(group, name)]
}

// Names returns every "group:name" identity, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for k := range t.byName {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Records returns the records in slot order.
func (t *Table) Records() []*Record {
	out := make([]*Record, 0, len(t.byName))
	for _, r := range t.slots {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.byName)
}
