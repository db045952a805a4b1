package b2nd

// workItem names one chunk's contribution to a slice read: the chunk's
// grid coordinate, the selected region in chunk-local indices, and where
// that region lands in the output buffer. chunkCount is shared between
// the chunk-local and output regions; the two always have the same shape.
type workItem struct {
	coord []uint64 // Chunk grid coordinate

	chunkStart []uint64 // Region start, chunk-local
	chunkCount []uint64 // Region extent

	outStart []uint64 // Region start in the output buffer
}

// decomposeSlice enumerates the chunks whose bounding boxes intersect
// [start, start+memShape) and emits one work item per chunk, clipped to
// the intersection. The emitted output regions tile [0, memShape)
// exactly: no gaps, no overlap. An empty selection emits nothing.
func decomposeSlice(shape []uint64, chunkDims []uint32, sel Selection) []workItem {
	if sel.IsEmpty() {
		return nil
	}

	ndims := len(shape)
	first := make([]uint64, ndims)
	last := make([]uint64, ndims) // Inclusive
	for d := 0; d < ndims; d++ {
		first[d] = sel.Start[d] / uint64(chunkDims[d])
		last[d] = (sel.Start[d] + sel.MemShape[d] - 1) / uint64(chunkDims[d])
	}

	var items []workItem
	coord := append([]uint64(nil), first...)
	for {
		if item, ok := intersect(shape, chunkDims, sel, coord); ok {
			items = append(items, item)
		}

		d := ndims - 1
		for d >= 0 {
			coord[d]++
			if coord[d] <= last[d] {
				break
			}
			coord[d] = first[d]
			d--
		}
		if d < 0 {
			return items
		}
	}
}

// intersect clips the selection against one chunk's bounding box. A
// chunk with an empty intersection on any axis is discarded; the
// enumeration above never produces one, but the guard keeps a bad
// coordinate from turning into a zero-volume copy downstream.
func intersect(shape []uint64, chunkDims []uint32, sel Selection, coord []uint64) (workItem, bool) {
	ndims := len(shape)
	item := workItem{
		coord:      append([]uint64(nil), coord...),
		chunkStart: make([]uint64, ndims),
		chunkCount: make([]uint64, ndims),
		outStart:   make([]uint64, ndims),
	}

	for d := 0; d < ndims; d++ {
		origin := coord[d] * uint64(chunkDims[d])
		end := origin + uint64(chunkDims[d])
		if end > shape[d] {
			end = shape[d]
		}

		lo := sel.Start[d]
		if origin > lo {
			lo = origin
		}
		hi := sel.Start[d] + sel.MemShape[d]
		if end < hi {
			hi = end
		}
		if hi <= lo {
			return workItem{}, false
		}

		item.chunkStart[d] = lo - origin
		item.chunkCount[d] = hi - lo
		item.outStart[d] = lo - sel.Start[d]
	}
	return item, true
}
