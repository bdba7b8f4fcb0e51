package tags

import "sync"

// StringTable interns strings. Handles are positions in the table and handle 0
// is always the empty string. It is safe for concurrent use.
type StringTable struct {
	mu      sync.RWMutex
	strings []string
	lookup  map[string]uint32
	added   int
}

// NewStringTable creates a table from existing strings. If the first entry is
// not empty, an empty string is placed in front of them.
func NewStringTable(strs []string) *StringTable {
	t := &StringTable{lookup: make(map[string]uint32, len(strs)+1)}
	if len(strs) == 0 || strs[0] != "" {
		t.strings = append(t.strings, "")
	}
	t.strings = append(t.strings, strs...)
	for i, s := range t.strings {
		if _, ok := t.lookup[s]; !ok {
			t.lookup[s] = uint32(i)
		}
	}
	return t
}

// Resolve returns the string behind a handle.
func (t *StringTable) Resolve(handle uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int64(handle) >= int64(len(t.strings)) {
		return "", false
	}
	return t.strings[handle], true
}

// Find returns the handle of an existing string.
func (t *StringTable) Find(s string) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.lookup[s]
	return h, ok
}

// Contains reports whether s is interned.
func (t *StringTable) Contains(s string) bool {
	_, ok := t.Find(s)
	return ok
}

// Intern returns the handle of s, adding it if needed.
func (t *StringTable) Intern(s string) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.lookup[s]; ok {
		return h
	}
	h := uint32(len(t.strings))
	t.strings = append(t.strings, s)
	t.lookup[s] = h
	t.added++
	return h
}

// Added returns how many strings were interned since the table was created.
func (t *StringTable) Added() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.added
}

// Strings returns a copy of the table contents in handle order.
func (t *StringTable) Strings() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.strings...)
}
