package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

// Shuffle implements the byte shuffle filter. Client data holds the
// element size in bytes. Shuffling groups the i-th byte of every element
// together, which helps a following compressor on typed numeric data.
type Shuffle struct{}

func (Shuffle) ID() uint16 {
	return meta.FilterShuffle
}

func (Shuffle) Decode(data []byte, clientData []uint32) ([]byte, error) {
	elemSize, err := shuffleElemSize(data, clientData)
	if err != nil {
		return nil, err
	}
	if elemSize <= 1 {
		return data, nil
	}

	count := len(data) / elemSize
	out := make([]byte, len(data))
	for b := 0; b < elemSize; b++ {
		for i := 0; i < count; i++ {
			out[i*elemSize+b] = data[b*count+i]
		}
	}
	return out, nil
}

func (Shuffle) Encode(data []byte, clientData []uint32) ([]byte, error) {
	elemSize, err := shuffleElemSize(data, clientData)
	if err != nil {
		return nil, err
	}
	if elemSize <= 1 {
		return data, nil
	}

	count := len(data) / elemSize
	out := make([]byte, len(data))
	for b := 0; b < elemSize; b++ {
		for i := 0; i < count; i++ {
			out[b*count+i] = data[i*elemSize+b]
		}
	}
	return out, nil
}

func shuffleElemSize(data []byte, clientData []uint32) (int, error) {
	if len(clientData) == 0 || clientData[0] == 0 {
		return 0, fmt.Errorf("shuffle filter missing element size")
	}
	elemSize := int(clientData[0])
	if len(data)%elemSize != 0 {
		return 0, fmt.Errorf("shuffle: %d bytes not a multiple of element size %d", len(data), elemSize)
	}
	return elemSize, nil
}
