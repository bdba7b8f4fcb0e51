// Package pointer translates between compact on-disk pointers, expanded
// addresses and file offsets, and validates block bounds.
//
// Every bounds check in the codec goes through Context.ContainsBlock. Invalid
// addresses are never reported as errors; callers normalize them to a null
// pointer with zero length.
package pointer

// Context describes the container's data region.
type Context struct {
	// Base is the expanded address of the first byte of the data region.
	Base int64 `yaml:"base"`
	// Offset is the file offset of the first byte of the data region.
	Offset int64 `yaml:"offset"`
	// Size is the length of the data region in bytes.
	Size int64 `yaml:"size"`
	// Shift and Bias expand a compact pointer: (compact << Shift) + Bias.
	Shift uint  `yaml:"shift"`
	Bias  int64 `yaml:"bias"`
}

// Expand converts a compact pointer to an address. The null pointer stays null.
func (c Context) Expand(compact uint32) int64 {
	if compact == 0 {
		return 0
	}
	return (int64(compact) << c.Shift) + c.Bias
}

// Contract converts an address back to its compact form. The null address stays null.
func (c Context) Contract(addr int64) uint32 {
	if addr == 0 {
		return 0
	}
	return uint32((addr - c.Bias) >> c.Shift)
}

// ContainsBlock reports whether [addr, addr+length) lies inside the data region.
// The null address is never contained.
func (c Context) ContainsBlock(addr, length int64) bool {
	if addr == 0 || length < 0 {
		return false
	}
	if addr < c.Base {
		return false
	}
	return addr+length <= c.Base+c.Size
}

// OffsetToPointer converts a file offset into the data region to an address.
func (c Context) OffsetToPointer(offset int64) int64 {
	return offset - c.Offset + c.Base
}

// PointerToOffset converts an address in the data region to a file offset.
func (c Context) PointerToOffset(addr int64) int64 {
	return addr - c.Base + c.Offset
}
