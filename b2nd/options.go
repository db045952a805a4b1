package b2nd

import "github.com/robert-malhotra/go-b2nd/internal/blosc"

// Codec selects the block compression algorithm for blosc-framed chunks.
type Codec uint8

const (
	CodecZstd Codec = Codec(blosc.CodecZstd)
	CodecLZ4  Codec = Codec(blosc.CodecLZ4)
)

func (c Codec) String() string {
	return blosc.Codec(c).String()
}

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks         []uint64
	blosc2         bool
	codec          Codec
	blockSize      uint32
	compressionLvl int
	shuffle        bool
	fletcher32     bool
	bigEndian      bool
	opaqueSize     uint32
}

func defaultDatasetOptions() *datasetOptions {
	return &datasetOptions{
		codec: CodecZstd,
	}
}

// WithChunks sets the chunk dimensions. Datasets with any compression or
// checksum filter must be chunked; without this option such datasets use
// a single chunk covering the whole extent.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithBlosc2 stores chunks as blosc frames with the given codec. Cannot
// be combined with WithDeflate, WithShuffle, or WithFletcher32: a blosc
// frame carries its own checksums and block compression.
func WithBlosc2(codec Codec) DatasetOption {
	return func(o *datasetOptions) {
		o.blosc2 = true
		o.codec = codec
	}
}

// WithBlockSize sets the uncompressed block size of blosc frames.
func WithBlockSize(size uint32) DatasetOption {
	return func(o *datasetOptions) {
		o.blockSize = size
	}
}

// WithDeflate enables zlib compression at the given level (1-9).
func WithDeflate(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level >= 1 && level <= 9 {
			o.compressionLvl = level
		}
	}
}

// WithShuffle enables the byte shuffle filter (improves compression).
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) {
		o.shuffle = true
	}
}

// WithFletcher32 enables Fletcher32 checksum validation.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) {
		o.fletcher32 = true
	}
}

// WithBigEndian stores multi-byte elements big-endian. Such datasets are
// readable but never qualify for the optimized slice path.
func WithBigEndian() DatasetOption {
	return func(o *datasetOptions) {
		o.bigEndian = true
	}
}

// WithOpaque records elements as undifferentiated byte blobs of the
// given size. The data passed to CreateDataset must be a []byte whose
// length divides evenly into elements; readers reinterpret the blob into
// a structured type at decode time.
func WithOpaque(elemSize uint32) DatasetOption {
	return func(o *datasetOptions) {
		o.opaqueSize = elemSize
	}
}
