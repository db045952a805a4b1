// Package meta defines and parses b2nd dataset descriptor blocks.
//
// A descriptor is a checksummed block of typed records describing one
// dataset: its dataspace (shape), datatype, storage layout, and filter
// pipeline. Records the parser does not recognize are preserved as
// Unknown so newer writers stay readable.
package meta

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/binary"
)

// Descriptor block signature.
var Signature = []byte("DSET")

// DescriptorVersion is the current descriptor block version.
const DescriptorVersion = 1

// Record type identifiers.
type RecordType uint8

const (
	TypeDataspace      RecordType = 1
	TypeDatatype       RecordType = 2
	TypeLayout         RecordType = 3
	TypeFilterPipeline RecordType = 4
)

var (
	ErrBadDescriptor = errors.New("invalid dataset descriptor")
	ErrBadChecksum   = errors.New("dataset descriptor checksum mismatch")
)

// Record is the interface implemented by all descriptor records.
type Record interface {
	RecordType() RecordType
}

// Unknown preserves an unrecognized record type.
type Unknown struct {
	Typ  RecordType
	Data []byte
}

func (u *Unknown) RecordType() RecordType { return u.Typ }

// Descriptor is a parsed dataset descriptor block.
type Descriptor struct {
	Dataspace *Dataspace
	Datatype  *Datatype
	Layout    *Layout
	Filters   *FilterPipeline
}

// ReadDescriptor reads and validates a descriptor block at the given
// file address.
func ReadDescriptor(r *binary.Reader, addr uint64) (*Descriptor, error) {
	nr := r.At(int64(addr))

	sig, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor signature: %w", err)
	}
	if string(sig) != string(Signature) {
		return nil, fmt.Errorf("%w: bad signature %q", ErrBadDescriptor, sig)
	}

	version, err := nr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != DescriptorVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadDescriptor, version)
	}

	count, err := nr.ReadUint8()
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{}
	for i := 0; i < int(count); i++ {
		typ, err := nr.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("reading record %d type: %w", i, err)
		}
		length, err := nr.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("reading record %d length: %w", i, err)
		}
		body, err := nr.ReadBytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("reading record %d body: %w", i, err)
		}

		switch RecordType(typ) {
		case TypeDataspace:
			desc.Dataspace, err = parseDataspace(body)
		case TypeDatatype:
			desc.Datatype, err = parseDatatype(body)
		case TypeLayout:
			desc.Layout, err = parseLayout(body)
		case TypeFilterPipeline:
			desc.Filters, err = parseFilterPipeline(body)
		default:
			// Skip unknown record types.
		}
		if err != nil {
			return nil, fmt.Errorf("parsing record %d (type %d): %w", i, typ, err)
		}
	}

	// Verify the trailing checksum over everything before it.
	bodyLen := int(nr.Pos() - int64(addr))
	stored, err := nr.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading descriptor checksum: %w", err)
	}
	raw, err := r.At(int64(addr)).ReadBytes(bodyLen)
	if err != nil {
		return nil, err
	}
	if !binary.VerifyLookup3(raw, stored) {
		return nil, ErrBadChecksum
	}

	if desc.Dataspace == nil {
		return nil, fmt.Errorf("%w: missing dataspace record", ErrBadDescriptor)
	}
	if desc.Datatype == nil {
		return nil, fmt.Errorf("%w: missing datatype record", ErrBadDescriptor)
	}
	if desc.Layout == nil {
		return nil, fmt.Errorf("%w: missing layout record", ErrBadDescriptor)
	}
	return desc, nil
}
