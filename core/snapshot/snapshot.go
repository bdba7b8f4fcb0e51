// Package snapshot defines the persisted form of one decoded record: its field
// tree and the cross-record references it names. Snapshots are CBOR documents
// encoded in core deterministic mode so identical records produce identical
// bytes.
package snapshot

import (
	"errors"
	"fmt"

	"tag-sync/core/field"
	"tag-sync/core/tags"

	"github.com/fxamacker/cbor/v2"
)

// Version is the current snapshot format version.
const Version = 1

// ErrVersion is returned for snapshots written by an unknown format version.
var ErrVersion = errors.New("unsupported snapshot version")

// Snapshot is one serialized record.
type Snapshot struct {
	Version int            `cbor:"1,keyasint"`
	Group   string         `cbor:"2,keyasint"`
	Name    string         `cbor:"3,keyasint"`
	Fields  []*field.Field `cbor:"4,keyasint"`
	Refs    []string       `cbor:"5,keyasint,omitempty"`
}

// New creates a snapshot of the current version.
func New(group, name string, fields []*field.Field, refs []string) *Snapshot {
	return &Snapshot{Version: Version, Group: group, Name: name, Fields: fields, Refs: refs}
}

// Key returns the "group:name" identity of the record.
func (s *Snapshot) Key() string {
	return tags.Key(s.Group, s.Name)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{MaxNestedLevels: 256}).DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes a snapshot.
func Marshal(s *Snapshot) ([]byte, error) {
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", s.Key(), err)
	}
	return data, nil
}

// Unmarshal decodes a snapshot and checks its version.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	for _, f := range s.Fields {
		if f == nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: null field", s.Key())
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", s.Key(), err)
		}
	}
	return &s, nil
}
