package b2nd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/robert-malhotra/go-b2nd/internal/blosc"
	"github.com/robert-malhotra/go-b2nd/internal/chunkindex"
	"github.com/robert-malhotra/go-b2nd/internal/dtype"
	"github.com/robert-malhotra/go-b2nd/internal/filter"
	"github.com/robert-malhotra/go-b2nd/internal/layout"
	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

// Dataset is an open handle to one named array in a file. Handles are
// immutable after creation and safe for concurrent reads.
type Dataset struct {
	file *File
	name string
	desc *meta.Descriptor
	lay  layout.Layout

	// Selection-independent eligibility, computed once per handle.
	eligOnce   sync.Once
	eligReason IneligibleReason
}

// Name returns the dataset's name in the file's root directory.
func (d *Dataset) Name() string {
	return d.name
}

// Shape returns the dataset's extent per axis. Scalar datasets have an
// empty shape.
func (d *Dataset) Shape() []uint64 {
	return append([]uint64(nil), d.desc.Dataspace.Dimensions...)
}

// Rank returns the number of axes.
func (d *Dataset) Rank() int {
	return d.desc.Dataspace.Rank()
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.desc.Dataspace.NumElements()
}

// ChunkShape returns the nominal chunk extent per axis, or nil for
// unchunked datasets.
func (d *Dataset) ChunkShape() []uint64 {
	if !d.desc.Layout.IsChunked() {
		return nil
	}
	dims := make([]uint64, len(d.desc.Layout.ChunkDims))
	for i, c := range d.desc.Layout.ChunkDims {
		dims[i] = uint64(c)
	}
	return dims
}

// ElementSize returns the size of one element in bytes.
func (d *Dataset) ElementSize() uint32 {
	return d.desc.Datatype.Size
}

// BigEndian reports whether multi-byte elements are stored big-endian.
func (d *Dataset) BigEndian() bool {
	return d.desc.Datatype.BigEndian
}

// Filters returns the identifiers of the dataset's filter pipeline in
// declaration order.
func (d *Dataset) Filters() []uint16 {
	if d.desc.Filters == nil {
		return nil
	}
	ids := make([]uint16, len(d.desc.Filters.Filters))
	for i, f := range d.desc.Filters.Filters {
		ids[i] = f.ID
	}
	return ids
}

// Read reads the whole dataset through the generic path into dest, a
// pointer to a slice of the matching Go type.
func (d *Dataset) Read(dest any) error {
	if d.file.closed {
		return ErrClosed
	}
	raw, err := d.lay.Read()
	if err != nil {
		return d.wrapReadErr(err)
	}
	return dtype.Convert(raw, d.desc.Datatype, dest)
}

// wrapReadErr maps storage faults onto the public error taxonomy.
// Corruption signals from any internal layer surface as ErrDataIntegrity
// so callers can tell broken storage from plain I/O failure.
func (d *Dataset) wrapReadErr(err error) error {
	switch {
	case errors.Is(err, chunkindex.ErrChunkMissing),
		errors.Is(err, chunkindex.ErrBadChecksum),
		errors.Is(err, layout.ErrShortChunk),
		errors.Is(err, blosc.ErrBadFrame),
		errors.Is(err, blosc.ErrBadDigest),
		errors.Is(err, filter.ErrChecksum):
		return fmt.Errorf("%w: dataset %q: %w", ErrDataIntegrity, d.name, err)
	default:
		return err
	}
}
