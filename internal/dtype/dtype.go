// Package dtype converts between raw dataset bytes and Go values.
//
// Datasets store fixed-size numeric elements (or opaque bytes) with an
// explicit byte order. Conversion is a flat operation over element
// streams; shaping the result is the caller's concern.
package dtype

import (
	stdbinary "encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

var (
	// ErrUnsupportedType is returned for Go values with no dataset
	// element representation.
	ErrUnsupportedType = errors.New("unsupported element type")

	// ErrTypeMismatch is returned when a destination's element type
	// does not match the dataset's datatype.
	ErrTypeMismatch = errors.New("destination type does not match datatype")

	// ErrSizeMismatch is returned when a raw buffer is not a whole
	// number of elements, or an element count disagrees with a shape.
	ErrSizeMismatch = errors.New("byte count does not match element count")
)

// FromGoValue derives the stored datatype for a Go slice's element type.
// Multi-byte types are stored little-endian unless bigEndian is set.
func FromGoValue(v any, bigEndian bool) (*meta.Datatype, error) {
	switch v.(type) {
	case []int8:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 1, Signed: true}, nil
	case []int16:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 2, Signed: true, BigEndian: bigEndian}, nil
	case []int32:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 4, Signed: true, BigEndian: bigEndian}, nil
	case []int64:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 8, Signed: true, BigEndian: bigEndian}, nil
	case []uint8:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 1}, nil
	case []uint16:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 2, BigEndian: bigEndian}, nil
	case []uint32:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 4, BigEndian: bigEndian}, nil
	case []uint64:
		return &meta.Datatype{Class: meta.ClassFixedPoint, Size: 8, BigEndian: bigEndian}, nil
	case []float32:
		return &meta.Datatype{Class: meta.ClassFloatPoint, Size: 4, Signed: true, BigEndian: bigEndian}, nil
	case []float64:
		return &meta.Datatype{Class: meta.ClassFloatPoint, Size: 8, Signed: true, BigEndian: bigEndian}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// Opaque returns an opaque datatype of the given element size.
func Opaque(size uint32) *meta.Datatype {
	return &meta.Datatype{Class: meta.ClassOpaque, Size: size}
}

func byteOrder(dt *meta.Datatype) stdbinary.ByteOrder {
	if dt.BigEndian {
		return stdbinary.BigEndian
	}
	return stdbinary.LittleEndian
}

// Convert decodes raw dataset bytes into dest, which must be a pointer
// to a slice of the matching Go type. The slice is resized to the
// element count. Opaque datatypes decode into *[]byte.
func Convert(raw []byte, dt *meta.Datatype, dest any) error {
	size := int(dt.Size)
	if size == 0 || len(raw)%size != 0 {
		return fmt.Errorf("%w: %d bytes, element size %d", ErrSizeMismatch, len(raw), size)
	}
	n := len(raw) / size
	ord := byteOrder(dt)

	switch out := dest.(type) {
	case *[]byte:
		if dt.Class != meta.ClassOpaque && size != 1 {
			return fmt.Errorf("%w: []byte destination for %d-byte elements", ErrTypeMismatch, size)
		}
		*out = append((*out)[:0], raw...)
		return nil

	case *[]int8:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 1, true); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = int8(raw[i])
		}
		return nil

	case *[]int16:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 2, true); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = int16(ord.Uint16(raw[i*2:]))
		}
		return nil

	case *[]int32:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 4, true); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = int32(ord.Uint32(raw[i*4:]))
		}
		return nil

	case *[]int64:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 8, true); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = int64(ord.Uint64(raw[i*8:]))
		}
		return nil

	case *[]uint16:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 2, false); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = ord.Uint16(raw[i*2:])
		}
		return nil

	case *[]uint32:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 4, false); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = ord.Uint32(raw[i*4:])
		}
		return nil

	case *[]uint64:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 8, false); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = ord.Uint64(raw[i*8:])
		}
		return nil

	case *[]float32:
		if err := checkNumeric(dt, meta.ClassFloatPoint, 4, true); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = math.Float32frombits(ord.Uint32(raw[i*4:]))
		}
		return nil

	case *[]float64:
		if err := checkNumeric(dt, meta.ClassFloatPoint, 8, true); err != nil {
			return err
		}
		*out = resize(*out, n)
		for i := range *out {
			(*out)[i] = math.Float64frombits(ord.Uint64(raw[i*8:]))
		}
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, dest)
	}
}

// Encode serializes a Go slice into raw dataset bytes per the datatype's
// size and byte order. The value's element type must match the datatype.
func Encode(v any, dt *meta.Datatype) ([]byte, error) {
	ord := byteOrder(dt)

	switch src := v.(type) {
	case []byte:
		if dt.Class != meta.ClassOpaque && dt.Size != 1 {
			return nil, fmt.Errorf("%w: []byte source for %d-byte elements", ErrTypeMismatch, dt.Size)
		}
		if dt.Class == meta.ClassOpaque && len(src)%int(dt.Size) != 0 {
			return nil, fmt.Errorf("%w: %d bytes, element size %d", ErrSizeMismatch, len(src), dt.Size)
		}
		return append([]byte(nil), src...), nil

	case []int8:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 1, true); err != nil {
			return nil, err
		}
		out := make([]byte, len(src))
		for i, e := range src {
			out[i] = byte(e)
		}
		return out, nil

	case []int16:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 2, true); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*2)
		for i, e := range src {
			ord.PutUint16(out[i*2:], uint16(e))
		}
		return out, nil

	case []int32:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 4, true); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*4)
		for i, e := range src {
			ord.PutUint32(out[i*4:], uint32(e))
		}
		return out, nil

	case []int64:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 8, true); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*8)
		for i, e := range src {
			ord.PutUint64(out[i*8:], uint64(e))
		}
		return out, nil

	case []uint16:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 2, false); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*2)
		for i, e := range src {
			ord.PutUint16(out[i*2:], e)
		}
		return out, nil

	case []uint32:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 4, false); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*4)
		for i, e := range src {
			ord.PutUint32(out[i*4:], e)
		}
		return out, nil

	case []uint64:
		if err := checkNumeric(dt, meta.ClassFixedPoint, 8, false); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*8)
		for i, e := range src {
			ord.PutUint64(out[i*8:], e)
		}
		return out, nil

	case []float32:
		if err := checkNumeric(dt, meta.ClassFloatPoint, 4, true); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*4)
		for i, e := range src {
			ord.PutUint32(out[i*4:], math.Float32bits(e))
		}
		return out, nil

	case []float64:
		if err := checkNumeric(dt, meta.ClassFloatPoint, 8, true); err != nil {
			return nil, err
		}
		out := make([]byte, len(src)*8)
		for i, e := range src {
			ord.PutUint64(out[i*8:], math.Float64bits(e))
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func checkNumeric(dt *meta.Datatype, class meta.DatatypeClass, size uint32, signed bool) error {
	if dt.Class != class || dt.Size != size || dt.Signed != signed {
		return fmt.Errorf("%w: datatype class %d size %d signed %v",
			ErrTypeMismatch, dt.Class, dt.Size, dt.Signed)
	}
	return nil
}

func resize[T any](s []T, n int) []T {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]T, n)
}
