package meta

import (
	"encoding/binary"
	"fmt"
)

// DataspaceClass represents the extent class of a dataspace.
type DataspaceClass uint8

const (
	DataspaceScalar DataspaceClass = 0 // Single element, no dimensions
	DataspaceSimple DataspaceClass = 1 // Dense, regular N-dimensional extent
	DataspaceNull   DataspaceClass = 2 // No data
)

// Dataspace describes the extent of a dataset.
type Dataspace struct {
	Class      DataspaceClass
	Dimensions []uint64
}

func (m *Dataspace) RecordType() RecordType { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int {
	return len(m.Dimensions)
}

// IsScalar returns true for a scalar dataspace.
func (m *Dataspace) IsScalar() bool {
	return m.Class == DataspaceScalar
}

// IsSimple returns true for a dense regular extent.
func (m *Dataspace) IsSimple() bool {
	return m.Class == DataspaceSimple
}

// NumElements returns the total number of elements in the dataspace.
func (m *Dataspace) NumElements() uint64 {
	switch m.Class {
	case DataspaceNull:
		return 0
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	default:
		return 0
	}
}

// Record layout: class(1) rank(1) dims(rank*8).
func parseDataspace(data []byte) (*Dataspace, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("dataspace record too short")
	}

	ds := &Dataspace{Class: DataspaceClass(data[0])}
	rank := int(data[1])

	if ds.Class != DataspaceSimple || rank == 0 {
		return ds, nil
	}

	if len(data) < 2+rank*8 {
		return nil, fmt.Errorf("dataspace record truncated: rank %d", rank)
	}
	ds.Dimensions = make([]uint64, rank)
	for i := 0; i < rank; i++ {
		ds.Dimensions[i] = binary.LittleEndian.Uint64(data[2+i*8:])
	}
	return ds, nil
}

func (m *Dataspace) encode() []byte {
	buf := make([]byte, 2+len(m.Dimensions)*8)
	buf[0] = byte(m.Class)
	buf[1] = byte(len(m.Dimensions))
	for i, d := range m.Dimensions {
		binary.LittleEndian.PutUint64(buf[2+i*8:], d)
	}
	return buf
}
