// Package b2nd reads and writes b2nd container files: dense, regularly
// chunked n-dimensional arrays whose chunks are stored as independently
// compressed blosc frames.
//
// Slice reads go through an optimized path that opens chunk frames
// directly at their file offsets, decompressing only the blocks a
// selection touches. When a dataset or selection does not qualify, the
// read falls back to the generic filter-pipeline path with identical
// results; FastSliceCheck exposes the qualification decision.
package b2nd

import "errors"

// Common errors
var (
	ErrNotB2ND       = errors.New("not a b2nd file")
	ErrNotFound      = errors.New("dataset not found")
	ErrExists        = errors.New("dataset already exists")
	ErrClosed        = errors.New("file is closed")
	ErrReadOnly      = errors.New("file is open read-only")
	ErrUnsupported   = errors.New("unsupported feature")
	ErrDataIntegrity = errors.New("data integrity error")
	ErrSizeMismatch  = errors.New("stored byte count does not divide into whole elements")
)
