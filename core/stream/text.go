package stream

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func utf16Encoding(order binary.ByteOrder) encoding.Encoding {
	if order == binary.BigEndian {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}

// ASCII reads a fixed-length single-byte string of n bytes and cuts it at the
// first NUL. Bytes are mapped through ISO-8859-1 so every byte round-trips.
func (r *Reader) ASCII(n int) string {
	b := r.Bytes(n)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// UTF16 reads a fixed-length UTF-16 string of n bytes and cuts it at the
// first NUL code unit.
func (r *Reader) UTF16(n int) string {
	b := r.Bytes(n)
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	b = b[:len(b)&^1]
	s, err := utf16Encoding(r.order).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(s)
}

// EncodeLatin1 converts s to single-byte ISO-8859-1. Characters outside the
// charset become '?'.
func EncodeLatin1(s string) []byte {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	b, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}

// PutASCII writes s followed by a NUL, clipped to size. Bytes past the
// terminator are left untouched.
func (w *Writer) PutASCII(s string, size int) {
	w.putTerminated(EncodeLatin1(s), 1, size)
}

// PutUTF16 writes s followed by a NUL code unit, clipped to size.
func (w *Writer) PutUTF16(s string, size int) {
	b, err := utf16Encoding(w.order).NewEncoder().Bytes([]byte(s))
	if err != nil {
		b = nil
	}
	w.putTerminated(b, 2, size)
}

func (w *Writer) putTerminated(b []byte, nul, size int) {
	out := make([]byte, 0, len(b)+nul)
	out = append(out, b...)
	out = append(out, make([]byte, nul)...)
	if len(out) > size {
		out = out[:size]
	}
	w.PutBytes(out)
}
