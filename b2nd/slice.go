package b2nd

import (
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/layout"
)

// Slice reads the selected region of the dataset. Missing trailing axes
// default to All. The read uses the optimized chunk-direct path when the
// dataset and selection qualify and falls back to the generic
// filter-pipeline path otherwise; both produce bit-identical results.
//
// Axes selected with At are dropped from the result shape; selecting one
// index on every axis yields a scalar Array.
func (d *Dataset) Slice(dims ...Dim) (*Array, error) {
	if d.file.closed {
		return nil, ErrClosed
	}
	sel, err := normalizeSelection(d.desc.Dataspace.Dimensions, dims)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if elig := d.checkEligible(sel); elig.Eligible {
		raw, err = d.readFast(sel)
	} else {
		raw, err = d.readGeneric(sel)
	}
	if err != nil {
		return nil, err
	}

	return &Array{
		datatype: d.desc.Datatype,
		shape:    sel.OutShape,
		data:     raw,
	}, nil
}

// FastSliceCheck probes whether Slice would take the optimized path for
// this selection, without reading any data. Ineligibility is a normal
// outcome carried in the result; the error return is reserved for
// invalid selections.
func (d *Dataset) FastSliceCheck(dims ...Dim) (Eligibility, error) {
	if d.file.closed {
		return Eligibility{}, ErrClosed
	}
	sel, err := normalizeSelection(d.desc.Dataspace.Dimensions, dims)
	if err != nil {
		return Eligibility{}, err
	}
	return d.checkEligible(sel), nil
}

// readGeneric reads a selection through the filter pipeline. Non-unit
// steps read the bounding hyperslab and extract the stepped elements
// from it.
func (d *Dataset) readGeneric(sel Selection) ([]byte, error) {
	elemSize := uint64(d.desc.Datatype.Size)
	if sel.IsEmpty() {
		return make([]byte, 0), nil
	}

	if sel.UnitSteps() {
		raw, err := d.lay.ReadSlice(sel.Start, sel.MemShape)
		if err != nil {
			return nil, d.wrapReadErr(err)
		}
		return raw, nil
	}

	// Bounding box of the stepped selection.
	bounds := make([]uint64, len(sel.MemShape))
	for axis := range bounds {
		bounds[axis] = (sel.MemShape[axis]-1)*sel.Steps[axis] + 1
	}
	box, err := d.lay.ReadSlice(sel.Start, bounds)
	if err != nil {
		return nil, d.wrapReadErr(err)
	}

	origin := make([]uint64, len(bounds))
	raw, err := layout.ExtractStrided(box, bounds, origin, sel.MemShape, sel.Steps, elemSize)
	if err != nil {
		return nil, fmt.Errorf("extracting stepped selection: %w", err)
	}
	return raw, nil
}
