package b2nd

import "fmt"

// Dim is one axis of a slice expression. Build one with All, At or Span,
// optionally stepped with Step. Negative indices count from the end of
// the axis.
type Dim struct {
	kind   dimKind
	index  int64
	lo, hi int64
	step   int64
}

type dimKind uint8

const (
	dimAll dimKind = iota
	dimAt
	dimSpan
)

// All selects every index of an axis.
func All() Dim {
	return Dim{kind: dimAll, step: 1}
}

// At selects a single index and drops the axis from the result shape.
// An out-of-range index is an error at read time.
func At(i int64) Dim {
	return Dim{kind: dimAt, index: i, step: 1}
}

// Span selects the half-open range [lo, hi). Out-of-range bounds clip to
// the axis extent; an empty or inverted range selects nothing.
func Span(lo, hi int64) Dim {
	return Dim{kind: dimSpan, lo: lo, hi: hi, step: 1}
}

// SpanFrom selects [lo, end of axis).
func SpanFrom(lo int64) Dim {
	return Dim{kind: dimSpan, lo: lo, hi: openEnd, step: 1}
}

// openEnd marks a span bound meaning "the axis extent"; larger than any
// real extent, so clipping resolves it.
const openEnd = int64(1) << 62

// Step returns the Dim with the given step between selected indices.
// Only All and Span accept a step; a step below 1 is an error at read
// time.
func (d Dim) Step(s int64) Dim {
	d.step = s
	return d
}

// Selection is a normalized slice request: per-axis start offsets, the
// pre-squeeze selected shape, the post-squeeze result shape, and the
// steps between selected indices.
type Selection struct {
	// Start holds the first selected index per axis.
	Start []uint64

	// MemShape is the number of selected indices per axis.
	MemShape []uint64

	// OutShape is MemShape with At-indexed axes dropped.
	OutShape []uint64

	// Steps holds the distance between selected indices per axis.
	// The optimized path requires every step to be 1.
	Steps []uint64

	// squeezed marks axes selected with At.
	squeezed []bool
}

// NumElements returns the number of selected elements.
func (s *Selection) NumElements() uint64 {
	n := uint64(1)
	for _, m := range s.MemShape {
		n *= m
	}
	return n
}

// IsEmpty reports whether any axis selects nothing.
func (s *Selection) IsEmpty() bool {
	for _, m := range s.MemShape {
		if m == 0 {
			return true
		}
	}
	return false
}

// UnitSteps reports whether every axis has step 1.
func (s *Selection) UnitSteps() bool {
	for _, st := range s.Steps {
		if st != 1 {
			return false
		}
	}
	return true
}

// normalizeSelection turns a slice expression into a Selection against
// the given dataset shape. Missing trailing axes default to All.
func normalizeSelection(shape []uint64, dims []Dim) (Selection, error) {
	if len(dims) > len(shape) {
		return Selection{}, fmt.Errorf("selection has %d axes, dataset has %d", len(dims), len(shape))
	}

	sel := Selection{
		Start:    make([]uint64, len(shape)),
		MemShape: make([]uint64, len(shape)),
		Steps:    make([]uint64, len(shape)),
		squeezed: make([]bool, len(shape)),
	}

	for axis := range shape {
		d := All()
		if axis < len(dims) {
			d = dims[axis]
		}
		extent := int64(shape[axis])

		if d.step < 1 {
			return Selection{}, fmt.Errorf("axis %d: step %d is not positive", axis, d.step)
		}
		sel.Steps[axis] = uint64(d.step)

		switch d.kind {
		case dimAll:
			sel.Start[axis] = 0
			sel.MemShape[axis] = stepped(extent, int64(d.step))

		case dimAt:
			if d.step != 1 {
				return Selection{}, fmt.Errorf("axis %d: stepped single-index selection", axis)
			}
			idx := d.index
			if idx < 0 {
				idx += extent
			}
			if idx < 0 || idx >= extent {
				return Selection{}, fmt.Errorf("axis %d: index %d out of range [0, %d)", axis, d.index, extent)
			}
			sel.Start[axis] = uint64(idx)
			sel.MemShape[axis] = 1
			sel.squeezed[axis] = true

		case dimSpan:
			lo, hi := d.lo, d.hi
			if lo < 0 {
				lo += extent
			}
			if hi < 0 {
				hi += extent
			}
			// Clip to bounds, per-axis.
			if lo < 0 {
				lo = 0
			}
			if hi > extent {
				hi = extent
			}
			if hi < lo {
				hi = lo
			}
			sel.Start[axis] = uint64(lo)
			sel.MemShape[axis] = stepped(hi-lo, int64(d.step))
		}
	}

	sel.OutShape = make([]uint64, 0, len(shape))
	for axis, m := range sel.MemShape {
		if !sel.squeezed[axis] {
			sel.OutShape = append(sel.OutShape, m)
		}
	}
	return sel, nil
}

// stepped returns the number of selected indices in a range of the given
// length with the given step.
func stepped(length, step int64) uint64 {
	if length <= 0 {
		return 0
	}
	return uint64((length + step - 1) / step)
}
