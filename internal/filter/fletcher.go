package filter

import (
	stdbinary "encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/binary"
	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

// Fletcher32 appends a Fletcher-32 checksum to the stored chunk and
// verifies it on read.
type Fletcher32 struct{}

func (Fletcher32) ID() uint16 {
	return meta.FilterFletcher32
}

func (Fletcher32) Decode(data []byte, _ []uint32) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("fletcher32: chunk shorter than its checksum")
	}
	payload := data[:len(data)-4]
	stored := stdbinary.LittleEndian.Uint32(data[len(data)-4:])
	if binary.Fletcher32(payload) != stored {
		return nil, fmt.Errorf("%w: fletcher32", ErrChecksum)
	}
	return payload, nil
}

func (Fletcher32) Encode(data []byte, _ []uint32) ([]byte, error) {
	out := make([]byte, len(data)+4)
	copy(out, data)
	stdbinary.LittleEndian.PutUint32(out[len(data):], binary.Fletcher32(data))
	return out, nil
}
