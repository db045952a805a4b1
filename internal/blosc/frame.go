// Package blosc implements the b2nd compressed chunk frame.
//
// Each chunk is stored as one self-describing frame: a checksummed header,
// a table of per-block compressed sizes, and a sequence of independently
// compressed blocks. Because blocks are independent, a reader that wants
// only a byte range of the payload can decompress just the blocks covering
// that range instead of the whole chunk.
//
// Frames are typeless: they record a byte count, never an element type.
// Interpreting the payload as typed elements is the caller's problem.
package blosc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"

	binpkg "github.com/robert-malhotra/go-b2nd/internal/binary"
)

// Frame signature.
var Signature = []byte("B2FR")

// FrameVersion is the current frame format version.
const FrameVersion = 1

// Codec identifies the block compression algorithm.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecZstd Codec = 1
	CodecLZ4  Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// DefaultBlockSize is the uncompressed block size used when the writer
// does not specify one. 64 KiB keeps partial reads fine-grained without
// hurting compression ratio much.
const DefaultBlockSize = 64 * 1024

// Frame flags.
const flagDigest = 1 << 0

// Block table entries with this bit set are stored raw (incompressible).
const rawBlockBit = 1 << 31

// headerSize is sig(4) version(1) codec(1) flags(1) reserved(1)
// nbytes(8) blockSize(4) numBlocks(4) digest(32) checksum(4).
const headerSize = 4 + 1 + 1 + 1 + 1 + 8 + 4 + 4 + 32 + 4

var (
	ErrBadFrame    = errors.New("invalid b2nd frame")
	ErrBadDigest   = errors.New("frame payload digest mismatch")
	ErrOutOfRange  = errors.New("requested range outside frame payload")
	ErrUnsupported = errors.New("unsupported frame codec")
)

// Shared zstd coders; EncodeAll/DecodeAll are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Frame is an open compressed chunk frame backed by an io.ReaderAt.
type Frame struct {
	src    io.ReaderAt
	offset int64 // File offset of the frame header

	codec      Codec
	nbytes     uint64 // Uncompressed payload size
	blockSize  uint32
	blockSizes []uint32 // Per-block table entries (with raw bit)
	digest     [32]byte
	hasDigest  bool
	dataStart  int64 // File offset of the first block
}

// Compress builds a complete frame around the given payload.
func Compress(data []byte, codec Codec, blockSize int) ([]byte, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	numBlocks := (len(data) + blockSize - 1) / blockSize
	blocks := make([][]byte, 0, numBlocks)
	table := make([]uint32, 0, numBlocks)

	for off := 0; off < len(data); off += blockSize {
		end := off + blockSize
		if end > len(data) {
			end = len(data)
		}
		raw := data[off:end]

		comp, stored, err := compressBlock(raw, codec)
		if err != nil {
			return nil, err
		}
		entry := uint32(len(comp))
		if stored {
			entry |= rawBlockBit
		}
		blocks = append(blocks, comp)
		table = append(table, entry)
	}

	total := headerSize + 4*numBlocks
	for _, b := range blocks {
		total += len(b)
	}

	buf := make([]byte, total)
	copy(buf, Signature)
	buf[4] = FrameVersion
	buf[5] = byte(codec)
	buf[6] = flagDigest
	binary.LittleEndian.PutUint64(buf[8:], uint64(len(data)))
	binary.LittleEndian.PutUint32(buf[16:], uint32(blockSize))
	binary.LittleEndian.PutUint32(buf[20:], uint32(numBlocks))
	digest := blake3.Sum256(data)
	copy(buf[24:56], digest[:])
	binary.LittleEndian.PutUint32(buf[56:], binpkg.Lookup3Checksum(buf[:56]))

	offset := headerSize
	for _, e := range table {
		binary.LittleEndian.PutUint32(buf[offset:], e)
		offset += 4
	}
	for _, b := range blocks {
		copy(buf[offset:], b)
		offset += len(b)
	}
	return buf, nil
}

func compressBlock(raw []byte, codec Codec) (comp []byte, storedRaw bool, err error) {
	switch codec {
	case CodecNone:
		return raw, true, nil

	case CodecZstd:
		comp = zstdEncoder.EncodeAll(raw, nil)
		if len(comp) >= len(raw) {
			return raw, true, nil
		}
		return comp, false, nil

	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, false, fmt.Errorf("lz4 compress: %w", err)
		}
		// n == 0 means incompressible.
		if n == 0 || n >= len(raw) {
			return raw, true, nil
		}
		return dst[:n], false, nil

	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupported, codec)
	}
}

// OpenAt parses a frame header at the given offset of an io.ReaderAt.
// Only the header and block table are read; payload blocks are fetched
// on demand by the Decompress methods.
func OpenAt(src io.ReaderAt, offset int64) (*Frame, error) {
	hdr := make([]byte, headerSize)
	if _, err := src.ReadAt(hdr, offset); err != nil {
		return nil, fmt.Errorf("reading frame header: %w", err)
	}

	if string(hdr[:4]) != string(Signature) {
		return nil, fmt.Errorf("%w: bad signature %q", ErrBadFrame, hdr[:4])
	}
	if hdr[4] != FrameVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadFrame, hdr[4])
	}

	stored := binary.LittleEndian.Uint32(hdr[56:])
	if !binpkg.VerifyLookup3(hdr[:56], stored) {
		return nil, fmt.Errorf("%w: header checksum mismatch", ErrBadFrame)
	}

	f := &Frame{
		src:       src,
		offset:    offset,
		codec:     Codec(hdr[5]),
		hasDigest: hdr[6]&flagDigest != 0,
		nbytes:    binary.LittleEndian.Uint64(hdr[8:]),
		blockSize: binary.LittleEndian.Uint32(hdr[16:]),
	}
	copy(f.digest[:], hdr[24:56])

	numBlocks := binary.LittleEndian.Uint32(hdr[20:])
	if f.blockSize == 0 && numBlocks > 0 {
		return nil, fmt.Errorf("%w: zero block size", ErrBadFrame)
	}

	tableBuf := make([]byte, 4*numBlocks)
	if _, err := src.ReadAt(tableBuf, offset+headerSize); err != nil {
		return nil, fmt.Errorf("reading frame block table: %w", err)
	}
	f.blockSizes = make([]uint32, numBlocks)
	for i := range f.blockSizes {
		f.blockSizes[i] = binary.LittleEndian.Uint32(tableBuf[i*4:])
	}
	f.dataStart = offset + headerSize + int64(4*numBlocks)
	return f, nil
}

// Decode decompresses a complete in-memory frame, as produced by Compress.
func Decode(frame []byte) ([]byte, error) {
	f, err := OpenAt(bytes.NewReader(frame), 0)
	if err != nil {
		return nil, err
	}
	return f.DecompressAll()
}

// NBytes returns the uncompressed payload size.
func (f *Frame) NBytes() uint64 {
	return f.nbytes
}

// Codec returns the frame's block codec.
func (f *Frame) Codec() Codec {
	return f.codec
}

// DecompressAll decompresses the whole payload and verifies its BLAKE3
// digest when the frame carries one.
func (f *Frame) DecompressAll() ([]byte, error) {
	out := make([]byte, f.nbytes)
	if err := f.decompressBlocks(0, len(f.blockSizes), out, 0); err != nil {
		return nil, err
	}
	if f.hasDigest {
		if blake3.Sum256(out) != f.digest {
			return nil, ErrBadDigest
		}
	}
	return out, nil
}

// DecompressRange returns payload bytes [off, off+length), decompressing
// only the blocks that cover the range. The whole-payload digest cannot
// be verified on a partial read; block framing is still checked.
func (f *Frame) DecompressRange(off, length uint64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if off+length > f.nbytes {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, off, off+length, f.nbytes)
	}

	bs := uint64(f.blockSize)
	first := int(off / bs)
	last := int((off + length - 1) / bs)

	span := make([]byte, f.blockSpanBytes(first, last+1))
	if err := f.decompressBlocks(first, last+1, span, 0); err != nil {
		return nil, err
	}

	start := off - uint64(first)*bs
	return span[start : start+length], nil
}

// blockSpanBytes returns the uncompressed byte count of blocks [from, to).
func (f *Frame) blockSpanBytes(from, to int) uint64 {
	bs := uint64(f.blockSize)
	n := uint64(to-from) * bs
	if to == len(f.blockSizes) {
		// Final block may be short.
		tail := f.nbytes - uint64(to-1)*bs
		n = uint64(to-1-from)*bs + tail
	}
	return n
}

// decompressBlocks decodes blocks [from, to) into out starting at outOff.
func (f *Frame) decompressBlocks(from, to int, out []byte, outOff uint64) error {
	fileOff := f.dataStart
	for i := 0; i < from; i++ {
		fileOff += int64(f.blockSizes[i] &^ rawBlockBit)
	}

	bs := uint64(f.blockSize)
	for i := from; i < to; i++ {
		compLen := int(f.blockSizes[i] &^ rawBlockBit)
		isRaw := f.blockSizes[i]&rawBlockBit != 0

		comp := make([]byte, compLen)
		if _, err := f.src.ReadAt(comp, fileOff); err != nil {
			return fmt.Errorf("reading frame block %d: %w", i, err)
		}
		fileOff += int64(compLen)

		want := bs
		if i == len(f.blockSizes)-1 {
			want = f.nbytes - uint64(i)*bs
		}

		dst := out[outOff : outOff+want]
		if err := f.decodeBlock(comp, dst, isRaw, i); err != nil {
			return err
		}
		outOff += want
	}
	return nil
}

func (f *Frame) decodeBlock(comp, dst []byte, isRaw bool, idx int) error {
	if isRaw {
		if len(comp) != len(dst) {
			return fmt.Errorf("%w: raw block %d size %d, want %d", ErrBadFrame, idx, len(comp), len(dst))
		}
		copy(dst, comp)
		return nil
	}

	switch f.codec {
	case CodecZstd:
		out, err := zstdDecoder.DecodeAll(comp, dst[:0])
		if err != nil {
			return fmt.Errorf("zstd decompress block %d: %w", idx, err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("%w: block %d decompressed to %d bytes, want %d", ErrBadFrame, idx, len(out), len(dst))
		}
		return nil

	case CodecLZ4:
		n, err := lz4.UncompressBlock(comp, dst)
		if err != nil {
			return fmt.Errorf("lz4 decompress block %d: %w", idx, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: block %d decompressed to %d bytes, want %d", ErrBadFrame, idx, n, len(dst))
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, f.codec)
	}
}
