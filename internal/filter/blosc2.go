package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/blosc"
	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

// Blosc2 client data layout.
const (
	// CDCodec is the blosc frame codec (blosc.Codec value).
	CDCodec = 0
	// CDBlockSize is the uncompressed block size in bytes; zero means
	// blosc.DefaultBlockSize.
	CDBlockSize = 1
)

// Blosc2ClientData builds the client data slice for a blosc2 pipeline
// entry.
func Blosc2ClientData(codec blosc.Codec, blockSize uint32) []uint32 {
	return []uint32{uint32(codec), blockSize}
}

// Blosc2 stores chunks as self-describing blosc frames. This is the
// pipeline-path implementation: it decodes the whole frame from memory.
// The direct read path bypasses it and opens the frame in place instead.
type Blosc2 struct{}

func (Blosc2) ID() uint16 {
	return meta.FilterBlosc2
}

func (Blosc2) Decode(data []byte, _ []uint32) ([]byte, error) {
	return blosc.Decode(data)
}

func (Blosc2) Encode(data []byte, clientData []uint32) ([]byte, error) {
	codec := blosc.CodecZstd
	blockSize := 0
	if len(clientData) > CDCodec {
		codec = blosc.Codec(clientData[CDCodec])
	}
	if len(clientData) > CDBlockSize {
		blockSize = int(clientData[CDBlockSize])
	}
	frame, err := blosc.Compress(data, codec, blockSize)
	if err != nil {
		return nil, fmt.Errorf("building blosc frame: %w", err)
	}
	return frame, nil
}
