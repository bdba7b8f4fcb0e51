package stream

import (
	"errors"
	"io"
	"sync"
)

// ErrOutOfRange is returned when a write would grow a fixed-size Buffer.
var ErrOutOfRange = errors.New("write past end of buffer")

// Buffer is a fixed-size in-memory container image implementing io.ReaderAt
// and io.WriterAt.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
}

// NewBuffer wraps data without copying it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if off < 0 || off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(b.data)) {
		return 0, ErrOutOfRange
	}
	return copy(b.data[off:], p), nil
}

// Len returns the buffer size.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Bytes returns a copy of the contents.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]byte(nil), b.data...)
}
