package b2nd

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-b2nd/internal/blosc"
	"github.com/robert-malhotra/go-b2nd/internal/layout"
)

// readFast reads a unit-step selection by opening chunk frames directly
// at their file offsets, bypassing the filter pipeline. The caller has
// already established eligibility; the result is bit-identical to the
// generic path.
//
// Work items write disjoint output regions, so chunks are read and
// placed concurrently without synchronizing on the buffer. On any fatal
// error the whole read aborts; no partial buffer is returned.
func (d *Dataset) readFast(sel Selection) ([]byte, error) {
	elemSize := uint64(d.desc.Datatype.Size)
	out := make([]byte, sel.NumElements()*elemSize)
	if sel.IsEmpty() {
		return out, nil
	}

	chunked := d.lay.(*layout.Chunked)
	shape := d.desc.Dataspace.Dimensions
	chunkDims := chunked.ChunkDims()

	items := decomposeSlice(shape, chunkDims, sel)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, item := range items {
		item := item
		g.Go(func() error {
			region, err := d.readChunkRegion(chunked, item)
			if err != nil {
				return err
			}
			placeRegion(out, region, item, sel, elemSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// readChunkRegion returns the bytes of one work item's intra-chunk
// region, shaped item.chunkCount in row-major order. When the region is
// a contiguous byte range of the stored chunk only the covering frame
// blocks are decompressed; otherwise the whole chunk is decoded and the
// region extracted with strided copies.
func (d *Dataset) readChunkRegion(chunked *layout.Chunked, item workItem) ([]byte, error) {
	elemSize := uint64(d.desc.Datatype.Size)
	shape := d.desc.Dataspace.Dimensions

	index := chunked.Index()
	if index == nil {
		return nil, fmt.Errorf("%w: dataset %q has no stored chunks", ErrDataIntegrity, d.name)
	}
	entry, err := index.Lookup(item.coord)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q: %w", ErrDataIntegrity, d.name, err)
	}

	frame, err := blosc.OpenAt(d.file.reader.Source(), int64(entry.Address))
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q chunk %v at offset %d: %w",
			ErrDataIntegrity, d.name, item.coord, entry.Address, err)
	}

	// The frame payload is an opaque byte blob; validate it against the
	// chunk's clipped extent before reinterpreting it as elements.
	clipped := layout.ClippedChunkDims(shape, chunked.ChunkDims(), item.coord)
	want := elemSize
	for _, c := range clipped {
		want *= c
	}
	if frame.NBytes()%elemSize != 0 {
		return nil, fmt.Errorf("%w: dataset %q chunk %v at offset %d: %d bytes, element size %d",
			ErrSizeMismatch, d.name, item.coord, entry.Address, frame.NBytes(), elemSize)
	}
	if frame.NBytes() != want {
		return nil, fmt.Errorf("%w: dataset %q chunk %v at offset %d: payload is %d bytes, chunk extent needs %d",
			ErrDataIntegrity, d.name, item.coord, entry.Address, frame.NBytes(), want)
	}

	if regionContiguous(item.chunkStart, item.chunkCount, clipped) {
		off := linearOffset(item.chunkStart, clipped) * elemSize
		length := elemSize
		for _, c := range item.chunkCount {
			length *= c
		}
		region, err := frame.DecompressRange(off, length)
		if err != nil {
			return nil, fmt.Errorf("%w: dataset %q chunk %v at offset %d: %w",
				ErrDataIntegrity, d.name, item.coord, entry.Address, err)
		}
		return region, nil
	}

	data, err := frame.DecompressAll()
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q chunk %v at offset %d: %w",
			ErrDataIntegrity, d.name, item.coord, entry.Address, err)
	}
	region, err := layout.ExtractHyperslab(data, clipped, item.chunkStart, item.chunkCount, elemSize)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q chunk %v: %w", ErrDataIntegrity, d.name, item.coord, err)
	}
	return region, nil
}

// placeRegion copies one work item's region into its output slot. Slots
// are disjoint by the decomposition's partition invariant, so every
// output position is written exactly once and the buffer needs no
// pre-zeroing beyond allocation.
func placeRegion(out, region []byte, item workItem, sel Selection, elemSize uint64) {
	ndims := len(item.outStart)
	end := make([]uint64, ndims)
	for d := range end {
		end[d] = item.outStart[d] + item.chunkCount[d]
	}
	origin := make([]uint64, ndims)
	layout.CopyOverlap(out, region, item.outStart, end,
		item.outStart, item.chunkCount, origin, sel.MemShape, elemSize)
}

// regionContiguous reports whether the region [start, start+count) of a
// row-major buffer with the given dims is one contiguous run: every axis
// inside the outermost axis with more than one selected index must be
// fully covered.
func regionContiguous(start, count, dims []uint64) bool {
	outer := -1
	for d := range count {
		if count[d] > 1 {
			outer = d
			break
		}
	}
	if outer < 0 {
		return true // Single element
	}
	for d := outer + 1; d < len(count); d++ {
		if start[d] != 0 || count[d] != dims[d] {
			return false
		}
	}
	return true
}

// linearOffset returns the row-major element index of a coordinate.
func linearOffset(coord, dims []uint64) uint64 {
	off := uint64(0)
	for d := range dims {
		off = off*dims[d] + coord[d]
	}
	return off
}
