package codec

import (
	"sync"

	"tag-sync/core/field"
)

type changeKey struct {
	addr int64
	name string
}

type snapshot struct {
	value  field.Value
	pinned bool
}

// ChangeSet holds prior field snapshots keyed by resolved address and field
// name. Fields sharing an address under different names are tracked apart.
// It is safe for concurrent use.
type ChangeSet struct {
	mu    sync.RWMutex
	snaps map[changeKey]snapshot
}

// NewChangeSet creates an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{snaps: make(map[changeKey]snapshot)}
}

// Record snapshots every field of a decoded tree, including block pages.
func (c *ChangeSet) Record(fields []*field.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	field.Walk(fields, func(f *field.Field) {
		if f.Value == nil {
			return
		}
		c.snaps[changeKey{f.Address, f.Name}] = snapshot{value: f.Value.Clone()}
	})
}

// Pin marks the field named name at addr as unchanged whatever its value.
func (c *ChangeSet) Pin(addr int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[changeKey{addr, name}] = snapshot{pinned: true}
}

// HasChanged reports whether f, located at addr, differs from the snapshot
// recorded for (addr, f.Name). A field without a snapshot has changed.
func (c *ChangeSet) HasChanged(addr int64, f *field.Field) bool {
	c.mu.RLock()
	s, ok := c.snaps[changeKey{addr, f.Name}]
	c.mu.RUnlock()
	if !ok {
		return true
	}
	if s.pinned {
		return false
	}
	return !field.Equal(s.value, f.Value)
}

// Len returns the number of snapshots.
func (c *ChangeSet) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snaps)
}
