package b2nd

import (
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/blosc"
	"github.com/robert-malhotra/go-b2nd/internal/chunkindex"
	"github.com/robert-malhotra/go-b2nd/internal/dtype"
	"github.com/robert-malhotra/go-b2nd/internal/layout"
	"github.com/robert-malhotra/go-b2nd/internal/meta"
	"github.com/robert-malhotra/go-b2nd/internal/superblock"
)

// CreateDataset writes a new dataset from a flat row-major Go slice and
// an explicit shape. An empty shape creates a scalar dataset from a
// one-element slice. The element type is inferred from the slice unless
// WithOpaque is given.
func (f *File) CreateDataset(name string, data any, shape []uint64, opts ...DatasetOption) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if !f.writable {
		return nil, ErrReadOnly
	}
	if name == "" {
		return nil, fmt.Errorf("dataset name must not be empty")
	}
	if _, ok := f.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, name)
	}

	for d, extent := range shape {
		if extent == 0 {
			return nil, fmt.Errorf("%w: zero extent on axis %d", ErrUnsupported, d)
		}
	}

	o := defaultDatasetOptions()
	for _, opt := range opts {
		opt(o)
	}

	dt, raw, err := encodeValue(data, o)
	if err != nil {
		return nil, err
	}

	space := dataspaceFor(shape)
	nelems := space.NumElements()
	if uint64(len(raw)) != nelems*uint64(dt.Size) {
		return nil, fmt.Errorf("data is %d bytes, shape %v with %d-byte elements needs %d",
			len(raw), shape, dt.Size, nelems*uint64(dt.Size))
	}

	pipeline, err := buildPipeline(o, dt)
	if err != nil {
		return nil, err
	}

	desc := &meta.Descriptor{
		Dataspace: space,
		Datatype:  dt,
		Filters:   pipeline,
	}

	chunked := len(o.chunks) > 0 || pipeline != nil
	if space.IsScalar() && chunked {
		return nil, fmt.Errorf("%w: scalar datasets cannot be chunked or filtered", ErrUnsupported)
	}

	if chunked {
		desc.Layout, err = f.writeChunked(raw, shape, dt, pipeline, o)
	} else {
		desc.Layout, err = f.writeContiguous(raw)
	}
	if err != nil {
		return nil, err
	}

	descAddr, err := f.writeDescriptor(desc)
	if err != nil {
		return nil, err
	}

	f.entries = append(f.entries, superblock.DirEntry{Name: name, DescriptorAddr: descAddr})
	f.byName[name] = descAddr
	f.dirty = true
	return f.Dataset(name)
}

func encodeValue(data any, o *datasetOptions) (*meta.Datatype, []byte, error) {
	if o.opaqueSize > 0 {
		blob, ok := data.([]byte)
		if !ok {
			return nil, nil, fmt.Errorf("opaque datasets take []byte data, got %T", data)
		}
		if len(blob)%int(o.opaqueSize) != 0 {
			return nil, nil, fmt.Errorf("%w: %d bytes, opaque element size %d",
				ErrSizeMismatch, len(blob), o.opaqueSize)
		}
		return dtype.Opaque(o.opaqueSize), append([]byte(nil), blob...), nil
	}

	dt, err := dtype.FromGoValue(data, o.bigEndian)
	if err != nil {
		return nil, nil, err
	}
	raw, err := dtype.Encode(data, dt)
	if err != nil {
		return nil, nil, err
	}
	return dt, raw, nil
}

func dataspaceFor(shape []uint64) *meta.Dataspace {
	if len(shape) == 0 {
		return &meta.Dataspace{Class: meta.DataspaceScalar}
	}
	return &meta.Dataspace{
		Class:      meta.DataspaceSimple,
		Dimensions: append([]uint64(nil), shape...),
	}
}

// buildPipeline translates options into a filter pipeline. Blosc2 frames
// carry their own block compression and checksums, so combining them
// with the classic filters is rejected rather than silently stacked.
func buildPipeline(o *datasetOptions, dt *meta.Datatype) (*meta.FilterPipeline, error) {
	if o.blosc2 {
		if o.compressionLvl > 0 || o.shuffle || o.fletcher32 {
			return nil, fmt.Errorf("%w: blosc2 cannot be combined with deflate, shuffle or fletcher32", ErrUnsupported)
		}
		return &meta.FilterPipeline{Filters: []meta.FilterInfo{{
			ID:         meta.FilterBlosc2,
			ClientData: []uint32{uint32(blosc.Codec(o.codec)), o.blockSize},
		}}}, nil
	}

	var filters []meta.FilterInfo
	if o.shuffle {
		filters = append(filters, meta.FilterInfo{
			ID:         meta.FilterShuffle,
			ClientData: []uint32{dt.Size},
		})
	}
	if o.compressionLvl > 0 {
		filters = append(filters, meta.FilterInfo{
			ID:         meta.FilterDeflate,
			ClientData: []uint32{uint32(o.compressionLvl)},
		})
	}
	if o.fletcher32 {
		filters = append(filters, meta.FilterInfo{ID: meta.FilterFletcher32})
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return &meta.FilterPipeline{Filters: filters}, nil
}

func (f *File) writeContiguous(raw []byte) (*meta.Layout, error) {
	addr := f.allocator.AllocTagged(uint64(len(raw)), "contiguous data")
	if err := f.writer.At(int64(addr)).WriteBytes(raw); err != nil {
		return nil, fmt.Errorf("writing contiguous data: %w", err)
	}
	return &meta.Layout{
		Class:   meta.LayoutContiguous,
		Address: addr,
		Size:    uint64(len(raw)),
	}, nil
}

// writeChunked splits the payload into chunks, runs each through the
// pipeline, and writes the chunk index. Edge chunks are stored clipped
// to the dataset extent, never padded.
func (f *File) writeChunked(raw []byte, shape []uint64, dt *meta.Datatype, pipeline *meta.FilterPipeline, o *datasetOptions) (*meta.Layout, error) {
	chunkDims, err := chunkDimsFor(shape, o.chunks)
	if err != nil {
		return nil, err
	}

	elemSize := uint64(dt.Size)
	index := chunkindex.New(layout.GridDims(shape, chunkDims))

	coord := make([]uint64, len(shape))
	for {
		origin := make([]uint64, len(shape))
		for d := range origin {
			origin[d] = coord[d] * uint64(chunkDims[d])
		}
		clipped := layout.ClippedChunkDims(shape, chunkDims, coord)

		chunk, err := layout.ExtractHyperslab(raw, shape, origin, clipped, elemSize)
		if err != nil {
			return nil, fmt.Errorf("extracting chunk %v: %w", coord, err)
		}

		stored, mask, err := f.registry.Encode(chunk, pipeline)
		if err != nil {
			return nil, fmt.Errorf("encoding chunk %v: %w", coord, err)
		}

		addr := f.allocator.AllocTagged(uint64(len(stored)), "chunk")
		if err := f.writer.At(int64(addr)).WriteBytes(stored); err != nil {
			return nil, fmt.Errorf("writing chunk %v: %w", coord, err)
		}
		if err := index.Set(coord, chunkindex.Entry{
			Address:    addr,
			StoredSize: uint64(len(stored)),
			FilterMask: mask,
		}); err != nil {
			return nil, err
		}

		d := len(coord) - 1
		for d >= 0 {
			coord[d]++
			if coord[d]*uint64(chunkDims[d]) < shape[d] {
				break
			}
			coord[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}

	encoded := index.Encode()
	indexAddr := f.allocator.AllocTagged(uint64(len(encoded)), "chunk index")
	if err := f.writer.At(int64(indexAddr)).WriteBytes(encoded); err != nil {
		return nil, fmt.Errorf("writing chunk index: %w", err)
	}

	return &meta.Layout{
		Class:          meta.LayoutChunked,
		ChunkDims:      chunkDims,
		ChunkIndexAddr: indexAddr,
	}, nil
}

func chunkDimsFor(shape, chunks []uint64) ([]uint32, error) {
	if len(chunks) == 0 {
		// One chunk covering the whole extent.
		chunks = shape
	}
	if len(chunks) != len(shape) {
		return nil, fmt.Errorf("chunk rank %d does not match shape rank %d", len(chunks), len(shape))
	}
	dims := make([]uint32, len(chunks))
	for d, c := range chunks {
		if c == 0 {
			return nil, fmt.Errorf("chunk extent must be positive on axis %d", d)
		}
		dims[d] = uint32(c)
	}
	return dims, nil
}

func (f *File) writeDescriptor(desc *meta.Descriptor) (uint64, error) {
	encoded, err := meta.EncodeDescriptor(desc)
	if err != nil {
		return 0, err
	}
	addr := f.allocator.AllocTagged(uint64(len(encoded)), "descriptor")
	if err := f.writer.At(int64(addr)).WriteBytes(encoded); err != nil {
		return 0, fmt.Errorf("writing descriptor: %w", err)
	}
	return addr, nil
}
