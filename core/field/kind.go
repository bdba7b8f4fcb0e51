package field

import (
	"fmt"
	"sort"
)

// Kind identifies the binary layout and value shape of a field.
type Kind uint8

const (
	KindComment Kind = iota
	KindUint8
	KindInt8
	KindUint16
	KindInt16
	KindUint32
	KindInt32
	KindUint64
	KindInt64
	KindFloat32
	KindFlags8
	KindFlags16
	KindFlags32
	KindFlags64
	KindEnum8
	KindEnum16
	KindEnum32
	KindASCII
	KindUTF16
	KindStringID
	KindRaw
	KindDataRef
	KindTagRef
	KindBlock
	KindColor32
	KindColorF
	KindVector2
	KindVector3
	KindVector4
	KindPoint2
	KindPoint3
	KindPlane2
	KindPlane3
	KindDegree
	KindDegree2
	KindDegree3
	KindRect16
	KindQuat16
	KindPoint16
	KindShader
	KindRangeUint16
	KindRangeFloat32
	KindRangeDegree

	kindCount
)

var kindNames = [kindCount]string{
	KindComment:      "comment",
	KindUint8:        "uint8",
	KindInt8:         "int8",
	KindUint16:       "uint16",
	KindInt16:        "int16",
	KindUint32:       "uint32",
	KindInt32:        "int32",
	KindUint64:       "uint64",
	KindInt64:        "int64",
	KindFloat32:      "float32",
	KindFlags8:       "flags8",
	KindFlags16:      "flags16",
	KindFlags32:      "flags32",
	KindFlags64:      "flags64",
	KindEnum8:        "enum8",
	KindEnum16:       "enum16",
	KindEnum32:       "enum32",
	KindASCII:        "ascii",
	KindUTF16:        "utf16",
	KindStringID:     "stringid",
	KindRaw:          "raw",
	KindDataRef:      "dataref",
	KindTagRef:       "tagref",
	KindBlock:        "tagblock",
	KindColor32:      "color32",
	KindColorF:       "colorf",
	KindVector2:      "vector2",
	KindVector3:      "vector3",
	KindVector4:      "vector4",
	KindPoint2:       "point2",
	KindPoint3:       "point3",
	KindPlane2:       "plane2",
	KindPlane3:       "plane3",
	KindDegree:       "degree",
	KindDegree2:      "degree2",
	KindDegree3:      "degree3",
	KindRect16:       "rect16",
	KindQuat16:       "quat16",
	KindPoint16:      "point16",
	KindShader:       "shader",
	KindRangeUint16:  "range16",
	KindRangeFloat32: "rangef",
	KindRangeDegree:  "ranged",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	return m
}()

// String returns the layout name of the kind.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k < kindCount
}

// ParseKind resolves a layout name such as "tagblock" or "enum16".
func ParseKind(name string) (Kind, error) {
	k, ok := kindByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown field kind %q", name)
	}
	return k, nil
}

// KindNames returns every known layout name, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kindNames))
	names = append(names, kindNames[:]...)
	sort.Strings(names)
	return names
}

// Width returns the number of bytes an integer-backed kind occupies on disk.
// It returns 0 for kinds whose width is not a single integer.
func (k Kind) Width() int {
	switch k {
	case KindUint8, KindInt8, KindFlags8, KindEnum8:
		return 1
	case KindUint16, KindInt16, KindFlags16, KindEnum16:
		return 2
	case KindUint32, KindInt32, KindFlags32, KindEnum32, KindStringID, KindColor32:
		return 4
	case KindUint64, KindInt64, KindFlags64:
		return 8
	}
	return 0
}

// Arity returns the component count of vector, angle and packed 16-bit kinds.
func (k Kind) Arity() int {
	switch k {
	case KindDegree:
		return 1
	case KindVector2, KindPoint2, KindDegree2, KindPoint16, KindRangeFloat32, KindRangeDegree:
		return 2
	case KindVector3, KindPoint3, KindPlane2, KindDegree3:
		return 3
	case KindVector4, KindPlane3, KindRect16, KindQuat16:
		return 4
	}
	return 0
}

// Signed reports whether an integer kind is read as a two's complement value.
func (k Kind) Signed() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64, KindEnum8, KindEnum16, KindEnum32:
		return true
	}
	return false
}
