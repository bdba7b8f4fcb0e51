package field

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	// Each block level adds about five levels of CBOR nesting.
	if decMode, err = (cbor.DecOptions{MaxNestedLevels: 256}).DecMode(); err != nil {
		panic(err)
	}
}

// wireField is the persisted form of a Field. The value is kept raw until the
// kind is known so it can be decoded into the right variant.
type wireField struct {
	Name    string          `cbor:"1,keyasint"`
	Kind    Kind            `cbor:"2,keyasint"`
	Offset  uint32          `cbor:"3,keyasint"`
	Size    uint32          `cbor:"4,keyasint,omitempty"`
	Address int64           `cbor:"5,keyasint,omitempty"`
	Tooltip string          `cbor:"6,keyasint,omitempty"`
	Value   cbor.RawMessage `cbor:"7,keyasint"`
	Ordinal int             `cbor:"8,keyasint,omitempty"`
}

var cborNull = []byte{0xf6}

// MarshalCBOR implements cbor.Marshaler.
func (f *Field) MarshalCBOR() ([]byte, error) {
	if f == nil {
		return cborNull, nil
	}
	raw := cborNull
	if f.Value != nil {
		b, err := encMode.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		raw = b
	}
	return encMode.Marshal(wireField{
		Name:    f.Name,
		Kind:    f.Kind,
		Offset:  f.Offset,
		Size:    f.Size,
		Address: f.Address,
		Tooltip: f.Tooltip,
		Ordinal: f.Ordinal,
		Value:   raw,
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (f *Field) UnmarshalCBOR(data []byte) error {
	var w wireField
	if err := decMode.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Kind.Valid() {
		return fmt.Errorf("field %q: invalid kind %d", w.Name, w.Kind)
	}
	v := NewValue(w.Kind)
	if len(w.Value) > 0 {
		if err := decMode.Unmarshal(w.Value, v); err != nil {
			return fmt.Errorf("field %q: %w", w.Name, err)
		}
	}
	*f = Field{
		Name:    w.Name,
		Kind:    w.Kind,
		Offset:  w.Offset,
		Size:    w.Size,
		Address: w.Address,
		Tooltip: w.Tooltip,
		Ordinal: w.Ordinal,
		Value:   v,
	}
	return nil
}
