// Package tags holds the record table and the string table of a container.
//
// Records live in a flat arena indexed by the low half of their datum index.
// A reference resolves only if the slot exists, is non-nil and carries the
// same full datum index, which rejects stale references to reused slots.
// Records never point at each other; references are datum indexes or
// "group:name" strings resolved on demand.
//
// StringTable is the interner behind string ID fields. Handle 0 is the empty
// string.
package tags
