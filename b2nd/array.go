package b2nd

import (
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/dtype"
	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

// Array is the result of a slice read: a contiguous row-major buffer
// with a shape. An Array with an empty shape is a scalar.
type Array struct {
	datatype *meta.Datatype
	shape    []uint64
	data     []byte
}

// Shape returns the array's extent per axis; empty for scalars.
func (a *Array) Shape() []uint64 {
	return append([]uint64(nil), a.shape...)
}

// IsScalar reports whether the array holds a single squeezed element.
func (a *Array) IsScalar() bool {
	return len(a.shape) == 0
}

// NumElements returns the number of elements in the array.
func (a *Array) NumElements() uint64 {
	n := uint64(1)
	for _, s := range a.shape {
		n *= s
	}
	return n
}

// Bytes returns the raw row-major element bytes.
func (a *Array) Bytes() []byte {
	return a.data
}

// Read decodes the array into dest, a pointer to a slice of any
// compatible Go type. Opaque payloads reinterpret into the requested
// element type; ErrSizeMismatch is returned when the byte count does not
// divide into whole elements.
func (a *Array) Read(dest any) error {
	dt := a.datatype
	if dt.IsOpaque() {
		// Reinterpret the blob as the destination's element type.
		var err error
		dt, err = datatypeFor(dest, dt)
		if err != nil {
			return err
		}
		if uint64(len(a.data))%uint64(dt.Size) != 0 {
			return fmt.Errorf("%w: %d opaque bytes, element size %d",
				ErrSizeMismatch, len(a.data), dt.Size)
		}
	}
	return dtype.Convert(a.data, dt, dest)
}

// datatypeFor derives the structured element type matching a destination
// slice pointer, inheriting byte order from the stored type.
func datatypeFor(dest any, stored *meta.Datatype) (*meta.Datatype, error) {
	switch dest.(type) {
	case *[]byte:
		return dtype.Opaque(1), nil
	case *[]int8:
		return dtype.FromGoValue([]int8(nil), stored.BigEndian)
	case *[]int16:
		return dtype.FromGoValue([]int16(nil), stored.BigEndian)
	case *[]int32:
		return dtype.FromGoValue([]int32(nil), stored.BigEndian)
	case *[]int64:
		return dtype.FromGoValue([]int64(nil), stored.BigEndian)
	case *[]uint16:
		return dtype.FromGoValue([]uint16(nil), stored.BigEndian)
	case *[]uint32:
		return dtype.FromGoValue([]uint32(nil), stored.BigEndian)
	case *[]uint64:
		return dtype.FromGoValue([]uint64(nil), stored.BigEndian)
	case *[]float32:
		return dtype.FromGoValue([]float32(nil), stored.BigEndian)
	case *[]float64:
		return dtype.FromGoValue([]float64(nil), stored.BigEndian)
	default:
		return nil, fmt.Errorf("%w: destination %T", ErrUnsupported, dest)
	}
}

// Int64s decodes the array as a flat []int64.
func (a *Array) Int64s() ([]int64, error) {
	var out []int64
	if err := a.Read(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Int32s decodes the array as a flat []int32.
func (a *Array) Int32s() ([]int32, error) {
	var out []int32
	if err := a.Read(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Uint64s decodes the array as a flat []uint64.
func (a *Array) Uint64s() ([]uint64, error) {
	var out []uint64
	if err := a.Read(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Float32s decodes the array as a flat []float32.
func (a *Array) Float32s() ([]float32, error) {
	var out []float32
	if err := a.Read(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Float64s decodes the array as a flat []float64.
func (a *Array) Float64s() ([]float64, error) {
	var out []float64
	if err := a.Read(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Scalar decodes a scalar array into dest, a pointer to a single value
// of a compatible Go type.
func (a *Array) Scalar(dest any) error {
	if !a.IsScalar() {
		return fmt.Errorf("array of shape %v is not a scalar", a.shape)
	}

	switch out := dest.(type) {
	case *int8:
		return scalarInto(a, out)
	case *int16:
		return scalarInto(a, out)
	case *int32:
		return scalarInto(a, out)
	case *int64:
		return scalarInto(a, out)
	case *uint8:
		return scalarInto(a, out)
	case *uint16:
		return scalarInto(a, out)
	case *uint32:
		return scalarInto(a, out)
	case *uint64:
		return scalarInto(a, out)
	case *float32:
		return scalarInto(a, out)
	case *float64:
		return scalarInto(a, out)
	default:
		return fmt.Errorf("%w: scalar destination %T", ErrUnsupported, dest)
	}
}

func scalarInto[T any](a *Array, out *T) error {
	var s []T
	if err := a.Read(&s); err != nil {
		return err
	}
	if len(s) != 1 {
		return fmt.Errorf("%w: scalar holds %d elements", ErrDataIntegrity, len(s))
	}
	*out = s[0]
	return nil
}
