// Package stream provides endian-aware positioned readers and writers over
// io.ReaderAt and io.WriterAt.
//
// Reader and Writer keep the first I/O error and turn every later call into a
// no-op, so a codec can issue a run of reads for one field and check Err once.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader reads fixed-width values at an explicit position.
type Reader struct {
	src   io.ReaderAt
	order binary.ByteOrder
	pos   int64
	err   error
}

// NewReader creates a Reader over src using the given byte order.
func NewReader(src io.ReaderAt, order binary.ByteOrder) *Reader {
	return &Reader{src: src, order: order}
}

// Seek moves the read position.
func (r *Reader) Seek(pos int64) { r.pos = pos }

// Pos returns the current read position.
func (r *Reader) Pos() int64 { return r.pos }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Bytes reads n bytes. On error it returns a zeroed slice of length n.
func (r *Reader) Bytes(n int) []byte {
	buf := make([]byte, n)
	if r.err != nil || n == 0 {
		return buf
	}
	read, err := r.src.ReadAt(buf, r.pos)
	if read < n {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = fmt.Errorf("read %d bytes at %#x: %w", n, r.pos, err)
		clear(buf)
		return buf
	}
	r.pos += int64(n)
	return buf
}

func (r *Reader) U8() uint8 { return r.Bytes(1)[0] }

func (r *Reader) I8() int8 { return int8(r.U8()) }

func (r *Reader) U16() uint16 { return r.order.Uint16(r.Bytes(2)) }

func (r *Reader) I16() int16 { return int16(r.U16()) }

func (r *Reader) U32() uint32 { return r.order.Uint32(r.Bytes(4)) }

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) U64() uint64 { return r.order.Uint64(r.Bytes(8)) }

func (r *Reader) I64() int64 { return int64(r.U64()) }

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

// Writer writes fixed-width values at an explicit position.
type Writer struct {
	dst   io.WriterAt
	order binary.ByteOrder
	pos   int64
	err   error
}

// NewWriter creates a Writer over dst using the given byte order.
func NewWriter(dst io.WriterAt, order binary.ByteOrder) *Writer {
	return &Writer{dst: dst, order: order}
}

// Seek moves the write position.
func (w *Writer) Seek(pos int64) { w.pos = pos }

// Pos returns the current write position.
func (w *Writer) Pos() int64 { return w.pos }

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// PutBytes writes b at the current position.
func (w *Writer) PutBytes(b []byte) {
	if w.err != nil || len(b) == 0 {
		return
	}
	n, err := w.dst.WriteAt(b, w.pos)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = fmt.Errorf("write %d bytes at %#x: %w", len(b), w.pos, err)
		return
	}
	w.pos += int64(n)
}

func (w *Writer) PutU8(v uint8) { w.PutBytes([]byte{v}) }

func (w *Writer) PutI8(v int8) { w.PutU8(uint8(v)) }

func (w *Writer) PutU16(v uint16) {
	b := make([]byte, 2)
	w.order.PutUint16(b, v)
	w.PutBytes(b)
}

func (w *Writer) PutI16(v int16) { w.PutU16(uint16(v)) }

func (w *Writer) PutU32(v uint32) {
	b := make([]byte, 4)
	w.order.PutUint32(b, v)
	w.PutBytes(b)
}

func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

func (w *Writer) PutU64(v uint64) {
	b := make([]byte, 8)
	w.order.PutUint64(b, v)
	w.PutBytes(b)
}

func (w *Writer) PutI64(v int64) { w.PutU64(uint64(v)) }

func (w *Writer) PutF32(v float32) { w.PutU32(math.Float32bits(v)) }

// PutFixed writes b clipped to size, zero-padding a shorter buffer.
func (w *Writer) PutFixed(b []byte, size int) {
	out := make([]byte, size)
	copy(out, b)
	w.PutBytes(out)
}
