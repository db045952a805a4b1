package meta

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-b2nd/internal/binary"
)

type encoder interface {
	Record
	encode() []byte
}

// EncodeDescriptor serializes a descriptor block, including its trailing
// checksum, ready to be written at any file address.
func EncodeDescriptor(desc *Descriptor) ([]byte, error) {
	if desc.Dataspace == nil || desc.Datatype == nil || desc.Layout == nil {
		return nil, fmt.Errorf("descriptor missing required records")
	}

	records := []encoder{desc.Dataspace, desc.Datatype, desc.Layout}
	if desc.Filters != nil && len(desc.Filters.Filters) > 0 {
		records = append(records, desc.Filters)
	}

	size := 4 + 1 + 1
	bodies := make([][]byte, len(records))
	for i, rec := range records {
		bodies[i] = rec.encode()
		size += 1 + 4 + len(bodies[i])
	}
	size += 4 // checksum

	buf := make([]byte, size)
	copy(buf, Signature)
	buf[4] = DescriptorVersion
	buf[5] = byte(len(records))

	offset := 6
	for i, rec := range records {
		buf[offset] = byte(rec.RecordType())
		binary.LittleEndian.PutUint32(buf[offset+1:], uint32(len(bodies[i])))
		copy(buf[offset+5:], bodies[i])
		offset += 5 + len(bodies[i])
	}

	checksum := binpkg.Lookup3Checksum(buf[:offset])
	binary.LittleEndian.PutUint32(buf[offset:], checksum)
	return buf, nil
}

// WriteDescriptor writes a descriptor block at the writer's position and
// returns the number of bytes written.
func WriteDescriptor(w *binpkg.Writer, desc *Descriptor) (int, error) {
	buf, err := EncodeDescriptor(desc)
	if err != nil {
		return 0, err
	}
	if err := w.WriteBytes(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// DescriptorSize returns the encoded size of a descriptor block.
func DescriptorSize(desc *Descriptor) (int, error) {
	buf, err := EncodeDescriptor(desc)
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}
