// Package layout implements dataset data access for the supported
// storage layouts. Contiguous datasets are a single run of elements at a
// file address; chunked datasets are a grid of equally-shaped chunks,
// each stored through the filter pipeline, with edge chunks clipped to
// the dataset extent.
package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/binary"
	"github.com/robert-malhotra/go-b2nd/internal/chunkindex"
	"github.com/robert-malhotra/go-b2nd/internal/filter"
	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

var (
	// ErrShortChunk is returned when a decoded chunk does not hold
	// exactly the bytes its grid position requires.
	ErrShortChunk = errors.New("decoded chunk size mismatch")

	// ErrOutOfBounds is returned for selections extending past the
	// dataset extent.
	ErrOutOfBounds = errors.New("selection out of bounds")
)

// Layout provides access to a dataset's stored elements.
type Layout interface {
	Class() meta.LayoutClass

	// Read returns the full dataset contents in row-major order.
	Read() ([]byte, error)

	// ReadSlice returns the hyperslab [start, start+count) in
	// row-major order.
	ReadSlice(start, count []uint64) ([]byte, error)
}

// New builds the Layout for a dataset descriptor.
func New(reader *binary.Reader, desc *meta.Descriptor, registry *filter.Registry) (Layout, error) {
	switch desc.Layout.Class {
	case meta.LayoutContiguous:
		if desc.Filters != nil && len(desc.Filters.Filters) > 0 {
			return nil, fmt.Errorf("contiguous layout cannot carry a filter pipeline")
		}
		return &Contiguous{
			reader:    reader,
			dataspace: desc.Dataspace,
			datatype:  desc.Datatype,
			layout:    desc.Layout,
		}, nil

	case meta.LayoutChunked:
		return NewChunked(reader, desc, registry)

	default:
		return nil, fmt.Errorf("unsupported layout class %d", desc.Layout.Class)
	}
}

// Contiguous reads datasets stored as one unfiltered run of elements.
type Contiguous struct {
	reader    *binary.Reader
	dataspace *meta.Dataspace
	datatype  *meta.Datatype
	layout    *meta.Layout
}

func (c *Contiguous) Class() meta.LayoutClass {
	return meta.LayoutContiguous
}

func (c *Contiguous) Read() ([]byte, error) {
	size := c.dataspace.NumElements() * uint64(c.datatype.Size)
	if size == 0 {
		return nil, nil
	}
	if binary.IsUndefinedOffset(c.layout.Address) {
		return nil, fmt.Errorf("contiguous dataset has no allocated storage")
	}
	data, err := c.reader.At(int64(c.layout.Address)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}

func (c *Contiguous) ReadSlice(start, count []uint64) ([]byte, error) {
	dims := c.dataspace.Dimensions
	if err := validateSelection(dims, start, count); err != nil {
		return nil, err
	}
	data, err := c.Read()
	if err != nil {
		return nil, err
	}
	return ExtractHyperslab(data, dims, start, count, uint64(c.datatype.Size))
}

// Chunked reads datasets stored as a chunk grid through the filter
// pipeline.
type Chunked struct {
	reader    *binary.Reader
	dataspace *meta.Dataspace
	datatype  *meta.Datatype
	layout    *meta.Layout
	pipeline  *meta.FilterPipeline
	registry  *filter.Registry

	index *chunkindex.Index
}

// NewChunked builds a chunked layout reader and loads its chunk index.
func NewChunked(reader *binary.Reader, desc *meta.Descriptor, registry *filter.Registry) (*Chunked, error) {
	if len(desc.Layout.ChunkDims) == 0 {
		return nil, fmt.Errorf("chunked layout has no chunk dimensions")
	}
	if len(desc.Layout.ChunkDims) != desc.Dataspace.Rank() {
		return nil, fmt.Errorf("chunk rank %d does not match dataspace rank %d",
			len(desc.Layout.ChunkDims), desc.Dataspace.Rank())
	}

	c := &Chunked{
		reader:    reader,
		dataspace: desc.Dataspace,
		datatype:  desc.Datatype,
		layout:    desc.Layout,
		pipeline:  desc.Filters,
		registry:  registry,
	}

	if !binary.IsUndefinedOffset(desc.Layout.ChunkIndexAddr) {
		index, err := chunkindex.Read(reader, desc.Layout.ChunkIndexAddr)
		if err != nil {
			return nil, fmt.Errorf("reading chunk index: %w", err)
		}
		c.index = index
	}
	return c, nil
}

func (c *Chunked) Class() meta.LayoutClass {
	return meta.LayoutChunked
}

// Index returns the dataset's chunk index, or nil if no chunk was ever
// written.
func (c *Chunked) Index() *chunkindex.Index {
	return c.index
}

// ChunkDims returns the nominal chunk shape.
func (c *Chunked) ChunkDims() []uint32 {
	return c.layout.ChunkDims
}

func (c *Chunked) Read() ([]byte, error) {
	dims := c.dataspace.Dimensions
	start := make([]uint64, len(dims))
	return c.ReadSlice(start, dims)
}

func (c *Chunked) ReadSlice(start, count []uint64) ([]byte, error) {
	dims := c.dataspace.Dimensions
	if err := validateSelection(dims, start, count); err != nil {
		return nil, err
	}

	elementSize := uint64(c.datatype.Size)
	totalElements := uint64(1)
	for _, cnt := range count {
		totalElements *= cnt
	}
	output := make([]byte, totalElements*elementSize)
	if totalElements == 0 {
		return output, nil
	}
	if c.index == nil {
		return nil, fmt.Errorf("%w: dataset has no stored chunks", chunkindex.ErrChunkMissing)
	}

	selEnd := make([]uint64, len(dims))
	for d := range dims {
		selEnd[d] = start[d] + count[d]
	}

	// Iterate the chunk coordinates covered by the selection.
	chunkDims := c.layout.ChunkDims
	first := make([]uint64, len(dims))
	last := make([]uint64, len(dims)) // Inclusive
	for d := range dims {
		first[d] = start[d] / uint64(chunkDims[d])
		last[d] = (selEnd[d] - 1) / uint64(chunkDims[d])
	}

	coord := append([]uint64(nil), first...)
	for {
		if err := c.copyChunkIntoOutput(coord, output, start, count, elementSize); err != nil {
			return nil, err
		}

		// Advance to the next chunk coordinate, row-major.
		d := len(coord) - 1
		for d >= 0 {
			coord[d]++
			if coord[d] <= last[d] {
				break
			}
			coord[d] = first[d]
			d--
		}
		if d < 0 {
			break
		}
	}

	return output, nil
}

// ReadChunk returns one decoded chunk in row-major order. The result
// holds exactly the chunk's clipped extent.
func (c *Chunked) ReadChunk(coord []uint64) ([]byte, error) {
	if c.index == nil {
		return nil, fmt.Errorf("%w: dataset has no stored chunks", chunkindex.ErrChunkMissing)
	}
	entry, err := c.index.Lookup(coord)
	if err != nil {
		return nil, err
	}

	stored, err := c.reader.At(int64(entry.Address)).ReadBytes(int(entry.StoredSize))
	if err != nil {
		return nil, fmt.Errorf("reading chunk %v: %w", coord, err)
	}

	data, err := c.registry.Decode(stored, c.pipeline, entry.FilterMask)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk %v: %w", coord, err)
	}

	clipped := ClippedChunkDims(c.dataspace.Dimensions, c.layout.ChunkDims, coord)
	want := uint64(c.datatype.Size)
	for _, d := range clipped {
		want *= d
	}
	if uint64(len(data)) != want {
		return nil, fmt.Errorf("%w: chunk %v decoded to %d bytes, want %d",
			ErrShortChunk, coord, len(data), want)
	}
	return data, nil
}

func (c *Chunked) copyChunkIntoOutput(coord []uint64, output []byte, selStart, selCount []uint64, elementSize uint64) error {
	data, err := c.ReadChunk(coord)
	if err != nil {
		return err
	}

	dims := c.dataspace.Dimensions
	chunkDims := c.layout.ChunkDims

	origin := make([]uint64, len(dims))
	for d := range origin {
		origin[d] = coord[d] * uint64(chunkDims[d])
	}
	clipped := ClippedChunkDims(dims, chunkDims, coord)

	overlapStart := make([]uint64, len(dims))
	overlapEnd := make([]uint64, len(dims))
	for d := range dims {
		overlapStart[d] = max64(selStart[d], origin[d])
		overlapEnd[d] = min64(selStart[d]+selCount[d], origin[d]+clipped[d])
	}

	CopyOverlap(output, data, overlapStart, overlapEnd,
		origin, clipped, selStart, selCount, elementSize)
	return nil
}

// GridDims returns the number of chunks along each axis.
func GridDims(dims []uint64, chunkDims []uint32) []uint64 {
	grid := make([]uint64, len(dims))
	for d := range dims {
		grid[d] = (dims[d] + uint64(chunkDims[d]) - 1) / uint64(chunkDims[d])
	}
	return grid
}

// ClippedChunkDims returns the actual extent of the chunk at the given
// grid coordinate. Interior chunks have the nominal shape; chunks on the
// trailing edge are clipped to the dataset extent.
func ClippedChunkDims(dims []uint64, chunkDims []uint32, coord []uint64) []uint64 {
	clipped := make([]uint64, len(dims))
	for d := range dims {
		clipped[d] = uint64(chunkDims[d])
		origin := coord[d] * uint64(chunkDims[d])
		if origin+clipped[d] > dims[d] {
			clipped[d] = dims[d] - origin
		}
	}
	return clipped
}

// CopyOverlap copies the dataset-coordinate region [overlapStart,
// overlapEnd) from a row-major source buffer rooted at srcOrigin with
// extent srcDims into a row-major destination buffer rooted at dstOrigin
// with extent dstDims. The innermost axis is copied contiguously.
func CopyOverlap(dst, src []byte, overlapStart, overlapEnd, srcOrigin, srcDims, dstOrigin, dstDims []uint64, elementSize uint64) {
	ndims := len(overlapStart)
	if ndims == 0 {
		copy(dst, src[:elementSize])
		return
	}
	for d := range overlapStart {
		if overlapStart[d] >= overlapEnd[d] {
			return
		}
	}

	srcStrides := rowMajorStrides(srcDims, elementSize)
	dstStrides := rowMajorStrides(dstDims, elementSize)

	copyOverlapRecursive(dst, src, overlapStart, overlapEnd,
		srcOrigin, dstOrigin, srcStrides, dstStrides, 0, 0, 0, ndims)
}

func rowMajorStrides(dims []uint64, elementSize uint64) []uint64 {
	strides := make([]uint64, len(dims))
	strides[len(dims)-1] = elementSize
	for d := len(dims) - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * dims[d+1]
	}
	return strides
}

func copyOverlapRecursive(
	dst, src []byte,
	overlapStart, overlapEnd []uint64,
	srcOrigin, dstOrigin []uint64,
	srcStrides, dstStrides []uint64,
	srcIdx, dstIdx uint64,
	dim, ndims int,
) {
	if dim == ndims-1 {
		rowBytes := (overlapEnd[dim] - overlapStart[dim]) * srcStrides[dim]
		srcStart := srcIdx + (overlapStart[dim]-srcOrigin[dim])*srcStrides[dim]
		dstStart := dstIdx + (overlapStart[dim]-dstOrigin[dim])*dstStrides[dim]
		copy(dst[dstStart:dstStart+rowBytes], src[srcStart:srcStart+rowBytes])
		return
	}

	for i := overlapStart[dim]; i < overlapEnd[dim]; i++ {
		copyOverlapRecursive(dst, src, overlapStart, overlapEnd,
			srcOrigin, dstOrigin, srcStrides, dstStrides,
			srcIdx+(i-srcOrigin[dim])*srcStrides[dim],
			dstIdx+(i-dstOrigin[dim])*dstStrides[dim],
			dim+1, ndims)
	}
}

// ExtractHyperslab copies the hyperslab [start, start+count) out of a
// full row-major buffer.
func ExtractHyperslab(data []byte, dims []uint64, start, count []uint64, elementSize uint64) ([]byte, error) {
	if err := validateSelection(dims, start, count); err != nil {
		return nil, err
	}

	total := elementSize
	for _, cnt := range count {
		total *= cnt
	}
	out := make([]byte, total)
	if total == 0 {
		return out, nil
	}

	end := make([]uint64, len(dims))
	for d := range dims {
		end[d] = start[d] + count[d]
	}
	origin := make([]uint64, len(dims))
	CopyOverlap(out, data, start, end, origin, dims, start, count, elementSize)
	return out, nil
}

// ExtractStrided copies a stepped hyperslab out of a row-major buffer:
// count elements per axis, step elements apart, starting at start.
func ExtractStrided(data []byte, dims []uint64, start, count, step []uint64, elementSize uint64) ([]byte, error) {
	if len(dims) == 0 {
		return append([]byte(nil), data[:elementSize]...), nil
	}
	for d := range dims {
		if step[d] == 0 {
			return nil, fmt.Errorf("%w: zero step on axis %d", ErrOutOfBounds, d)
		}
		if count[d] > 0 {
			lastIdx := start[d] + (count[d]-1)*step[d]
			if lastIdx >= dims[d] {
				return nil, fmt.Errorf("%w: axis %d reaches index %d of extent %d",
					ErrOutOfBounds, d, lastIdx, dims[d])
			}
		}
	}

	total := elementSize
	for _, cnt := range count {
		total *= cnt
	}
	out := make([]byte, total)
	if total == 0 {
		return out, nil
	}

	srcStrides := rowMajorStrides(dims, elementSize)
	dstStrides := rowMajorStrides(count, elementSize)
	extractStridedRecursive(out, data, start, count, step, srcStrides, dstStrides, 0, 0, 0)
	return out, nil
}

func extractStridedRecursive(dst, src []byte, start, count, step, srcStrides, dstStrides []uint64, srcIdx, dstIdx uint64, dim int) {
	if dim == len(count)-1 {
		if step[dim] == 1 {
			rowBytes := count[dim] * srcStrides[dim]
			srcStart := srcIdx + start[dim]*srcStrides[dim]
			copy(dst[dstIdx:dstIdx+rowBytes], src[srcStart:srcStart+rowBytes])
			return
		}
		for i := uint64(0); i < count[dim]; i++ {
			srcStart := srcIdx + (start[dim]+i*step[dim])*srcStrides[dim]
			dstStart := dstIdx + i*dstStrides[dim]
			copy(dst[dstStart:dstStart+srcStrides[dim]], src[srcStart:srcStart+srcStrides[dim]])
		}
		return
	}

	for i := uint64(0); i < count[dim]; i++ {
		extractStridedRecursive(dst, src, start, count, step, srcStrides, dstStrides,
			srcIdx+(start[dim]+i*step[dim])*srcStrides[dim],
			dstIdx+i*dstStrides[dim],
			dim+1)
	}
}

func validateSelection(dims []uint64, start, count []uint64) error {
	if len(start) != len(dims) || len(count) != len(dims) {
		return fmt.Errorf("%w: selection rank %d/%d, dataset rank %d",
			ErrOutOfBounds, len(start), len(count), len(dims))
	}
	for d := range dims {
		if start[d]+count[d] > dims[d] {
			return fmt.Errorf("%w: axis %d, start %d count %d extent %d",
				ErrOutOfBounds, d, start[d], count[d], dims[d])
		}
	}
	return nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
