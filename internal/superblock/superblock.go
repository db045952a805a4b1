// Package superblock handles the b2nd file header and root directory.
//
// The header is the entry point for any b2nd container: an 8-byte
// signature, format version, the end-of-file address, and the address of
// the root directory listing every dataset in the file. Both structures
// end with a lookup3 checksum so corruption is caught before anything
// else is parsed.
package superblock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-b2nd/internal/binary"
)

// b2nd file signature: 0x89 B 2 N D \r \n 0x1a
var Signature = []byte{0x89, 'B', '2', 'N', 'D', '\r', '\n', 0x1a}

// Version is the current container format version.
const Version = 1

// Directory block signature.
var dirSignature = []byte("ROOT")

var (
	ErrNotB2ND            = errors.New("not a b2nd container: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported b2nd format version")
	ErrInvalidHeader      = errors.New("invalid b2nd file header")
	ErrInvalidDirectory   = errors.New("invalid b2nd root directory")
)

// Superblock contains the essential b2nd file metadata.
type Superblock struct {
	Version          uint8
	Flags            uint8
	EOFAddress       uint64
	DirectoryAddress uint64
}

// DirEntry names one dataset and the address of its descriptor block.
type DirEntry struct {
	Name           string
	DescriptorAddr uint64
}

// headerSize is the fixed on-disk size of the file header:
// signature(8) version(1) flags(1) reserved(2) eof(8) dir(8) checksum(4).
const headerSize = 8 + 1 + 1 + 2 + 8 + 8 + 4

// Size returns the on-disk size of the file header.
func (sb *Superblock) Size() int { return headerSize }

// New creates a header for a freshly created container. The directory
// address starts undefined and is filled in on flush.
func New() *Superblock {
	return &Superblock{
		Version:          Version,
		EOFAddress:       headerSize,
		DirectoryAddress: binpkg.UndefinedOffset,
	}
}

// Read parses the file header at offset 0.
func Read(r io.ReaderAt) (*Superblock, error) {
	buf := make([]byte, headerSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrNotB2ND
		}
		return nil, err
	}

	if string(buf[:8]) != string(Signature) {
		return nil, ErrNotB2ND
	}

	sb := &Superblock{
		Version: buf[8],
		Flags:   buf[9],
	}
	if sb.Version != Version {
		return nil, ErrUnsupportedVersion
	}

	sb.EOFAddress = binary.LittleEndian.Uint64(buf[12:])
	sb.DirectoryAddress = binary.LittleEndian.Uint64(buf[20:])

	stored := binary.LittleEndian.Uint32(buf[28:])
	if !binpkg.VerifyLookup3(buf[:28], stored) {
		return nil, ErrInvalidHeader
	}
	return sb, nil
}

// Write writes the file header at offset 0.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	buf := make([]byte, headerSize)
	copy(buf, Signature)
	buf[8] = sb.Version
	buf[9] = sb.Flags
	binary.LittleEndian.PutUint64(buf[12:], sb.EOFAddress)
	binary.LittleEndian.PutUint64(buf[20:], sb.DirectoryAddress)
	binary.LittleEndian.PutUint32(buf[28:], binpkg.Lookup3Checksum(buf[:28]))
	return w.At(0).WriteBytes(buf)
}

// ReadDirectory parses the root directory block at the header's
// directory address. A file with no flushed directory has no datasets.
func (sb *Superblock) ReadDirectory(r *binpkg.Reader) ([]DirEntry, error) {
	if binpkg.IsUndefinedOffset(sb.DirectoryAddress) {
		return nil, nil
	}

	nr := r.At(int64(sb.DirectoryAddress))
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading directory signature: %w", err)
	}
	if string(sig) != string(dirSignature) {
		return nil, ErrInvalidDirectory
	}

	count, err := nr.ReadUint32()
	if err != nil {
		return nil, err
	}

	entries := make([]DirEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		nameLen, err := nr.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("reading directory entry %d: %w", i, err)
		}
		name, err := nr.ReadBytes(int(nameLen))
		if err != nil {
			return nil, fmt.Errorf("reading directory entry %d name: %w", i, err)
		}
		addr, err := nr.ReadOffset()
		if err != nil {
			return nil, fmt.Errorf("reading directory entry %d address: %w", i, err)
		}
		entries = append(entries, DirEntry{Name: string(name), DescriptorAddr: addr})
	}

	bodyLen := int(nr.Pos() - int64(sb.DirectoryAddress))
	stored, err := nr.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading directory checksum: %w", err)
	}
	raw, err := r.At(int64(sb.DirectoryAddress)).ReadBytes(bodyLen)
	if err != nil {
		return nil, err
	}
	if !binpkg.VerifyLookup3(raw, stored) {
		return nil, ErrInvalidDirectory
	}
	return entries, nil
}

// EncodeDirectory serializes a root directory block.
func EncodeDirectory(entries []DirEntry) []byte {
	size := 4 + 4
	for _, e := range entries {
		size += 2 + len(e.Name) + 8
	}
	size += 4 // checksum

	buf := make([]byte, size)
	copy(buf, dirSignature)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(entries)))

	offset := 8
	for _, e := range entries {
		binary.LittleEndian.PutUint16(buf[offset:], uint16(len(e.Name)))
		copy(buf[offset+2:], e.Name)
		offset += 2 + len(e.Name)
		binary.LittleEndian.PutUint64(buf[offset:], e.DescriptorAddr)
		offset += 8
	}

	binary.LittleEndian.PutUint32(buf[offset:], binpkg.Lookup3Checksum(buf[:offset]))
	return buf
}
