package codec

import (
	"encoding/binary"
	"fmt"

	"tag-sync/core/pointer"
	"tag-sync/core/tags"
)

// Mode tells how base positions are expressed.
type Mode int

const (
	// ModeFile bases are file offsets; field addresses are translated to pointer space.
	ModeFile Mode = iota
	// ModeMemory bases are addresses and the byte source is addressed by pointer.
	ModeMemory
)

// ParseMode resolves "file" or "memory".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "file":
		return ModeFile, nil
	case "memory":
		return ModeMemory, nil
	}
	return 0, fmt.Errorf("unknown address mode %q", s)
}

// BlockLayout locates the header members of a block.
type BlockLayout struct {
	Count   uint32 `yaml:"count"`
	Pointer uint32 `yaml:"pointer"`
}

// TagRefLayout locates the members of a grouped tag reference.
type TagRefLayout struct {
	Group uint32 `yaml:"group"`
	Index uint32 `yaml:"index"`
}

// DataRefLayout locates the header members of a data reference.
type DataRefLayout struct {
	Size    uint32 `yaml:"size"`
	Pointer uint32 `yaml:"pointer"`
}

// Layouts bundles the structure layouts of one engine.
type Layouts struct {
	Block   BlockLayout   `yaml:"block"`
	TagRef  TagRefLayout  `yaml:"tag_ref"`
	DataRef DataRefLayout `yaml:"data_ref"`
}

// DefaultLayouts returns the common 12/16/20 byte header layouts.
func DefaultLayouts() Layouts {
	return Layouts{
		Block:   BlockLayout{Count: 0, Pointer: 4},
		TagRef:  TagRefLayout{Group: 0, Index: 12},
		DataRef: DataRefLayout{Size: 0, Pointer: 12},
	}
}

// Env carries everything a decoder or encoder needs besides the bytes.
type Env struct {
	Order    binary.ByteOrder
	Pointers pointer.Context
	Layouts  Layouts
	Records  *tags.Table
	Strings  *tags.StringTable
	Mode     Mode
}

// address converts a byte position to pointer space.
func (e Env) address(pos int64) int64 {
	if e.Mode == ModeFile {
		return e.Pointers.OffsetToPointer(pos)
	}
	return pos
}

// position converts a pointer-space address to a byte position.
func (e Env) position(addr int64) int64 {
	if e.Mode == ModeFile {
		return e.Pointers.PointerToOffset(addr)
	}
	return addr
}

func (e Env) order() binary.ByteOrder {
	if e.Order == nil {
		return binary.LittleEndian
	}
	return e.Order
}
