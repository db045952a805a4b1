// Package chunkindex implements the b2nd chunk index block.
//
// A chunked dataset stores one index block mapping every chunk of the
// grid to the file address of its stored frame. Entries are laid out in
// row-major chunk-coordinate order, so a lookup is a single linearization
// and an array read, with no tree walk.
package chunkindex

import (
	stdbinary "encoding/binary"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/binary"
)

// Block signature.
var Signature = []byte("CIDX")

// IndexVersion is the current index block format version.
const IndexVersion = 1

var (
	ErrBadIndex     = errors.New("invalid chunk index block")
	ErrBadChecksum  = errors.New("chunk index checksum mismatch")
	ErrOutOfBounds  = errors.New("chunk coordinate outside grid")
	ErrChunkMissing = errors.New("chunk has no stored data")
)

// Entry describes one chunk of the grid.
type Entry struct {
	Address    uint64 // Frame address, or binary.UndefinedOffset if unwritten
	StoredSize uint64 // On-disk frame size in bytes
	FilterMask uint32 // Bit i set = filter i of the pipeline was skipped
}

// Present reports whether the chunk has stored data.
func (e Entry) Present() bool {
	return !binary.IsUndefinedOffset(e.Address)
}

// entrySize is address(8) storedSize(8) filterMask(4).
const entrySize = 8 + 8 + 4

// Index holds the chunk grid geometry and the entry table.
type Index struct {
	// GridDims is the number of chunks along each axis.
	GridDims []uint64

	entries []Entry
}

// New builds an empty index for a grid. Every entry starts unwritten.
func New(gridDims []uint64) *Index {
	n := uint64(1)
	for _, d := range gridDims {
		n *= d
	}
	entries := make([]Entry, n)
	for i := range entries {
		entries[i].Address = binary.UndefinedOffset
	}
	return &Index{
		GridDims: append([]uint64(nil), gridDims...),
		entries:  entries,
	}
}

// NumChunks returns the total number of chunks in the grid.
func (ix *Index) NumChunks() int {
	return len(ix.entries)
}

// Linearize converts a chunk coordinate to its row-major entry position.
func (ix *Index) Linearize(coord []uint64) (int, error) {
	if len(coord) != len(ix.GridDims) {
		return 0, fmt.Errorf("%w: rank %d, grid rank %d", ErrOutOfBounds, len(coord), len(ix.GridDims))
	}
	pos := uint64(0)
	for i, c := range coord {
		if c >= ix.GridDims[i] {
			return 0, fmt.Errorf("%w: coordinate %d = %d, grid extent %d", ErrOutOfBounds, i, c, ix.GridDims[i])
		}
		pos = pos*ix.GridDims[i] + c
	}
	return int(pos), nil
}

// Lookup returns the entry for a chunk coordinate. A present entry with
// ErrChunkMissing means the chunk was never written.
func (ix *Index) Lookup(coord []uint64) (Entry, error) {
	pos, err := ix.Linearize(coord)
	if err != nil {
		return Entry{}, err
	}
	e := ix.entries[pos]
	if !e.Present() {
		return Entry{}, fmt.Errorf("%w: coordinate %v", ErrChunkMissing, coord)
	}
	return e, nil
}

// Set records the entry for a chunk coordinate.
func (ix *Index) Set(coord []uint64, e Entry) error {
	pos, err := ix.Linearize(coord)
	if err != nil {
		return err
	}
	ix.entries[pos] = e
	return nil
}

// Read parses an index block at the given address.
func Read(r *binary.Reader, addr uint64) (*Index, error) {
	r = r.At(int64(addr))
	start := r.Pos()

	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading chunk index signature: %w", err)
	}
	if string(sig) != string(Signature) {
		return nil, fmt.Errorf("%w: bad signature %q", ErrBadIndex, sig)
	}

	version, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != IndexVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadIndex, version)
	}

	rank, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	ix := &Index{GridDims: make([]uint64, rank)}
	n := uint64(1)
	for i := range ix.GridDims {
		d, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		if d == 0 {
			return nil, fmt.Errorf("%w: zero grid extent on axis %d", ErrBadIndex, i)
		}
		ix.GridDims[i] = d
		n *= d
	}

	ix.entries = make([]Entry, n)
	for i := range ix.entries {
		addr, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		mask, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		ix.entries[i] = Entry{Address: addr, StoredSize: size, FilterMask: mask}
	}

	bodyLen := r.Pos() - start
	body, err := r.At(start).ReadBytes(int(bodyLen))
	if err != nil {
		return nil, err
	}
	stored, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if !binary.VerifyLookup3(body, stored) {
		return nil, ErrBadChecksum
	}
	return ix, nil
}

// Encode serializes the index block, checksum included.
func (ix *Index) Encode() []byte {
	buf := make([]byte, ix.Size())
	copy(buf, Signature)
	buf[4] = IndexVersion
	buf[5] = byte(len(ix.GridDims))

	offset := 6
	for _, d := range ix.GridDims {
		stdbinary.LittleEndian.PutUint64(buf[offset:], d)
		offset += 8
	}
	for _, e := range ix.entries {
		stdbinary.LittleEndian.PutUint64(buf[offset:], e.Address)
		stdbinary.LittleEndian.PutUint64(buf[offset+8:], e.StoredSize)
		stdbinary.LittleEndian.PutUint32(buf[offset+16:], e.FilterMask)
		offset += entrySize
	}
	stdbinary.LittleEndian.PutUint32(buf[offset:], binary.Lookup3Checksum(buf[:offset]))
	return buf
}

// Size returns the encoded block size in bytes.
func (ix *Index) Size() uint64 {
	return uint64(4 + 1 + 1 + 8*len(ix.GridDims) + entrySize*len(ix.entries) + 4)
}
