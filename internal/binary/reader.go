// Package binary provides low-level binary I/O for b2nd container parsing.
//
// The b2nd format is fixed little-endian with 8-byte file offsets and
// lengths, so unlike general-purpose container readers there is no
// configurable field width: every multi-byte integer on disk is
// little-endian and every address is a uint64.
package binary

import (
	"encoding/binary"
	"io"
)

// Reader reads b2nd binary structures from an io.ReaderAt while tracking
// a position. Readers derived with At share the underlying source but have
// independent positions, so they are safe to use from concurrent
// goroutines as long as the source's ReadAt is reentrant (os.File is).
type Reader struct {
	r   io.ReaderAt
	pos int64
}

// NewReader creates a reader positioned at offset 0.
func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

// At returns a new reader positioned at the given offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, pos: offset}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// Source returns the underlying io.ReaderAt.
func (r *Reader) Source() io.ReaderAt {
	return r.r
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// ReadUint32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadUint64 reads a little-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// ReadOffset reads a file address (uint64).
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUint64()
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// UndefinedOffset is the sentinel address for "no such block".
const UndefinedOffset uint64 = 0xFFFFFFFFFFFFFFFF

// IsUndefinedOffset reports whether an address is the undefined sentinel.
func IsUndefinedOffset(offset uint64) bool {
	return offset == UndefinedOffset
}
