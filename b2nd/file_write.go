package b2nd

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-b2nd/internal/alloc"
	"github.com/robert-malhotra/go-b2nd/internal/binary"
	"github.com/robert-malhotra/go-b2nd/internal/filter"
	"github.com/robert-malhotra/go-b2nd/internal/superblock"
)

// Create creates a new b2nd file, truncating any existing file at the
// path.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	writer := binary.NewWriter(f)
	if err := sb.Write(writer); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing file header: %w", err)
	}

	return &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(f),
		superblock: sb,
		registry:   filter.NewRegistry(),
		byName:     make(map[string]uint64),
		writable:   true,
		writer:     writer,
		allocator:  alloc.New(sb.EOFAddress),
		dirty:      true,
	}, nil
}

// Flush writes the root directory and file header so the file on disk is
// a complete, readable container.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return ErrReadOnly
	}
	return f.flush()
}

func (f *File) flush() error {
	if !f.dirty {
		return nil
	}

	// The directory is rewritten whole at a fresh address; the old copy
	// becomes a hole.
	dir := superblock.EncodeDirectory(f.entries)
	addr := f.allocator.AllocTagged(uint64(len(dir)), "directory")
	if err := f.writer.At(int64(addr)).WriteBytes(dir); err != nil {
		return fmt.Errorf("writing root directory: %w", err)
	}

	f.superblock.DirectoryAddress = addr
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if err := f.superblock.Write(f.writer); err != nil {
		return fmt.Errorf("writing file header: %w", err)
	}

	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("syncing file: %w", err)
	}
	f.dirty = false
	return nil
}
