// Package field defines the value model shared by the decoder, the encoder and the
// snapshot format.
//
// A record is described by an ordered list of *Field. Each field carries a Kind,
// its byte offset relative to the enclosing base, a resolved Address computed on
// decode and a Value. Value is a closed set of variants: every concrete type in
// this package implements it and nothing outside the package can, so the decoder
// and the encoder switch exhaustively over it.
//
// # Templates
//
// Schema templates are ordinary fields whose values carry only schema metadata
// (enum options, data reference format, color alpha, block element size and
// element template). Templates are never mutated. Decoding always works on a
// Clone, and block pages fall back to the template entry when their own slot is
// nil.
//
// # Usage
//
//	tpl := []*field.Field{
//	    field.New("flags", field.KindFlags32, 0x00),
//	    field.New("radius", field.KindFloat32, 0x04),
//	}
//	fields := field.CloneAll(tpl)
package field
