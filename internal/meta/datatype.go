package meta

import (
	"encoding/binary"
	"fmt"
)

// DatatypeClass represents the class of a b2nd element type.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0 // Integers
	ClassFloatPoint DatatypeClass = 1 // IEEE 754 floating-point
	ClassOpaque     DatatypeClass = 2 // Undifferentiated byte blobs
)

// Datatype flags.
const (
	flagBigEndian = 1 << 0
	flagSigned    = 1 << 1
)

// Datatype describes a dataset's element type.
type Datatype struct {
	Class     DatatypeClass
	Size      uint32 // Element size in bytes
	BigEndian bool
	Signed    bool // Fixed-point only
}

func (m *Datatype) RecordType() RecordType { return TypeDatatype }

// IsInteger returns true for fixed-point types.
func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }

// IsFloat returns true for floating-point types.
func (m *Datatype) IsFloat() bool { return m.Class == ClassFloatPoint }

// IsOpaque returns true for opaque byte-blob types.
func (m *Datatype) IsOpaque() bool { return m.Class == ClassOpaque }

// IsNative reports whether stored elements match the host byte order.
// b2nd runs on little-endian hosts (amd64, arm64), so native means
// little-endian or single-byte.
func (m *Datatype) IsNative() bool {
	return !m.BigEndian || m.Size == 1
}

// Record layout: class(1) flags(1) size(4).
func parseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("datatype record too short")
	}
	dt := &Datatype{
		Class:     DatatypeClass(data[0]),
		BigEndian: data[1]&flagBigEndian != 0,
		Signed:    data[1]&flagSigned != 0,
		Size:      binary.LittleEndian.Uint32(data[2:6]),
	}
	if dt.Size == 0 {
		return nil, fmt.Errorf("datatype has zero size")
	}
	return dt, nil
}

func (m *Datatype) encode() []byte {
	buf := make([]byte, 6)
	buf[0] = byte(m.Class)
	var flags uint8
	if m.BigEndian {
		flags |= flagBigEndian
	}
	if m.Signed {
		flags |= flagSigned
	}
	buf[1] = flags
	binary.LittleEndian.PutUint32(buf[2:6], m.Size)
	return buf
}
