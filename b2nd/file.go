package b2nd

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-b2nd/internal/alloc"
	"github.com/robert-malhotra/go-b2nd/internal/binary"
	"github.com/robert-malhotra/go-b2nd/internal/filter"
	"github.com/robert-malhotra/go-b2nd/internal/layout"
	"github.com/robert-malhotra/go-b2nd/internal/meta"
	"github.com/robert-malhotra/go-b2nd/internal/superblock"
)

// File is an open b2nd container.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	registry   *filter.Registry

	// Root directory, in file order, with a name index.
	entries []superblock.DirEntry
	byName  map[string]uint64

	closed bool

	// Write support
	writable  bool
	writer    *binary.Writer
	allocator *alloc.Allocator
	dirty     bool
}

// Open opens a b2nd file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	b2, err := load(path, f, false)
	if err != nil {
		f.Close()
		return nil, err
	}
	return b2, nil
}

// OpenReadWrite opens an existing b2nd file for reading and appending
// datasets.
func OpenReadWrite(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	b2, err := load(path, f, true)
	if err != nil {
		f.Close()
		return nil, err
	}
	return b2, nil
}

func load(path string, f *os.File, writable bool) (*File, error) {
	sb, err := superblock.Read(f)
	if err != nil {
		if err == superblock.ErrNotB2ND {
			return nil, fmt.Errorf("%w: %s", ErrNotB2ND, path)
		}
		return nil, fmt.Errorf("reading file header: %w", err)
	}

	reader := binary.NewReader(f)
	entries, err := sb.ReadDirectory(reader)
	if err != nil {
		return nil, fmt.Errorf("reading root directory: %w", err)
	}

	b2 := &File{
		path:       path,
		file:       f,
		reader:     reader,
		superblock: sb,
		registry:   filter.NewRegistry(),
		entries:    entries,
		byName:     make(map[string]uint64, len(entries)),
		writable:   writable,
	}
	for _, e := range entries {
		b2.byName[e.Name] = e.DescriptorAddr
	}

	if writable {
		b2.writer = binary.NewWriter(f)
		b2.allocator = alloc.New(sb.EOFAddress)
	}
	return b2, nil
}

// Close flushes pending metadata and closes the file.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.writable {
		if err := f.flush(); err != nil {
			f.file.Close()
			return err
		}
	}
	return f.file.Close()
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the container format version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// Datasets returns the names of the file's datasets in directory order.
func (f *File) Datasets() []string {
	names := make([]string, len(f.entries))
	for i, e := range f.entries {
		names[i] = e.Name
	}
	return names
}

// Dataset opens a dataset by name.
func (f *File) Dataset(name string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	addr, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	desc, err := meta.ReadDescriptor(f.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor for %q: %w", name, err)
	}
	lay, err := layout.New(f.reader, desc, f.registry)
	if err != nil {
		return nil, fmt.Errorf("opening layout for %q: %w", name, err)
	}

	return &Dataset{
		file: f,
		name: name,
		desc: desc,
		lay:  lay,
	}, nil
}
