package meta

import (
	"encoding/binary"
	"fmt"
)

// LayoutClass represents the storage layout class.
type LayoutClass uint8

const (
	LayoutContiguous LayoutClass = 1 // Data in a single contiguous block
	LayoutChunked    LayoutClass = 2 // Data in independently stored chunks
)

// Layout describes where a dataset's raw data lives in the file.
type Layout struct {
	Class LayoutClass

	// Contiguous layout
	Address uint64
	Size    uint64

	// Chunked layout
	ChunkDims      []uint32 // Chunk extent per dimension
	ChunkIndexAddr uint64   // Address of the CIDX block
}

func (m *Layout) RecordType() RecordType { return TypeLayout }

// IsChunked returns true if data is stored in chunks.
func (m *Layout) IsChunked() bool { return m.Class == LayoutChunked }

// IsContiguous returns true if data is stored contiguously.
func (m *Layout) IsContiguous() bool { return m.Class == LayoutContiguous }

// Record layout:
//
//	contiguous: class(1) addr(8) size(8)
//	chunked:    class(1) rank(1) chunkDims(rank*4) indexAddr(8)
func parseLayout(data []byte) (*Layout, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("layout record too short")
	}
	l := &Layout{Class: LayoutClass(data[0])}

	switch l.Class {
	case LayoutContiguous:
		if len(data) < 17 {
			return nil, fmt.Errorf("contiguous layout record truncated")
		}
		l.Address = binary.LittleEndian.Uint64(data[1:])
		l.Size = binary.LittleEndian.Uint64(data[9:])

	case LayoutChunked:
		if len(data) < 2 {
			return nil, fmt.Errorf("chunked layout record truncated")
		}
		rank := int(data[1])
		if len(data) < 2+rank*4+8 {
			return nil, fmt.Errorf("chunked layout record truncated: rank %d", rank)
		}
		l.ChunkDims = make([]uint32, rank)
		for i := 0; i < rank; i++ {
			l.ChunkDims[i] = binary.LittleEndian.Uint32(data[2+i*4:])
		}
		l.ChunkIndexAddr = binary.LittleEndian.Uint64(data[2+rank*4:])

	default:
		return nil, fmt.Errorf("unsupported layout class: %d", l.Class)
	}
	return l, nil
}

func (m *Layout) encode() []byte {
	switch m.Class {
	case LayoutContiguous:
		buf := make([]byte, 17)
		buf[0] = byte(m.Class)
		binary.LittleEndian.PutUint64(buf[1:], m.Address)
		binary.LittleEndian.PutUint64(buf[9:], m.Size)
		return buf
	case LayoutChunked:
		rank := len(m.ChunkDims)
		buf := make([]byte, 2+rank*4+8)
		buf[0] = byte(m.Class)
		buf[1] = byte(rank)
		for i, d := range m.ChunkDims {
			binary.LittleEndian.PutUint32(buf[2+i*4:], d)
		}
		binary.LittleEndian.PutUint64(buf[2+rank*4:], m.ChunkIndexAddr)
		return buf
	}
	return nil
}
