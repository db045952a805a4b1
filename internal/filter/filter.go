// Package filter implements the b2nd filter pipeline.
//
// Filters transform chunk payloads between their in-memory form and their
// stored form. On write the pipeline runs in declaration order; on read it
// runs in reverse. A chunk's filter mask records which filters were
// skipped when that particular chunk was stored.
package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

var (
	// ErrUnknownFilter is returned when a pipeline names a filter that
	// is not registered and not marked optional.
	ErrUnknownFilter = errors.New("unknown filter in pipeline")

	// ErrChecksum is returned when a checksum filter detects corruption.
	ErrChecksum = errors.New("filter checksum mismatch")
)

// Filter is one stage of the pipeline.
type Filter interface {
	// ID returns the filter identifier recorded in the dataset descriptor.
	ID() uint16

	// Decode transforms stored bytes back to their unfiltered form.
	Decode(data []byte, clientData []uint32) ([]byte, error)

	// Encode transforms payload bytes to their stored form.
	Encode(data []byte, clientData []uint32) ([]byte, error)
}

// Registry maps filter identifiers to implementations.
type Registry struct {
	filters map[uint16]Filter
}

// NewRegistry returns a registry with the built-in filters installed.
func NewRegistry() *Registry {
	reg := &Registry{filters: make(map[uint16]Filter)}
	reg.Register(Deflate{})
	reg.Register(Shuffle{})
	reg.Register(Fletcher32{})
	reg.Register(Blosc2{})
	return reg
}

// Register installs a filter, replacing any previous one with the same ID.
func (reg *Registry) Register(f Filter) {
	reg.filters[f.ID()] = f
}

// Lookup returns the filter for an ID, or nil if none is registered.
func (reg *Registry) Lookup(id uint16) Filter {
	return reg.filters[id]
}

// Decode runs a stored chunk backwards through the pipeline. Filters are
// applied in reverse declaration order; a filter whose bit is set in the
// chunk's mask is skipped, as is an unregistered optional filter.
func (reg *Registry) Decode(data []byte, pipeline *meta.FilterPipeline, mask uint32) ([]byte, error) {
	if pipeline == nil {
		return data, nil
	}
	for i := len(pipeline.Filters) - 1; i >= 0; i-- {
		info := pipeline.Filters[i]
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		f := reg.filters[info.ID]
		if f == nil {
			if info.IsOptional() {
				continue
			}
			return nil, fmt.Errorf("%w: id %d", ErrUnknownFilter, info.ID)
		}
		out, err := f.Decode(data, info.ClientData)
		if err != nil {
			return nil, fmt.Errorf("filter %d decode: %w", info.ID, err)
		}
		data = out
	}
	return data, nil
}

// Encode runs a payload forwards through the pipeline and returns the
// stored bytes and the mask of skipped filters. An optional filter that
// fails to apply is skipped rather than failing the write.
func (reg *Registry) Encode(data []byte, pipeline *meta.FilterPipeline) ([]byte, uint32, error) {
	if pipeline == nil {
		return data, 0, nil
	}
	var mask uint32
	for i, info := range pipeline.Filters {
		f := reg.filters[info.ID]
		if f == nil {
			if info.IsOptional() {
				mask |= 1 << uint(i)
				continue
			}
			return nil, 0, fmt.Errorf("%w: id %d", ErrUnknownFilter, info.ID)
		}
		out, err := f.Encode(data, info.ClientData)
		if err != nil {
			if info.IsOptional() {
				mask |= 1 << uint(i)
				continue
			}
			return nil, 0, fmt.Errorf("filter %d encode: %w", info.ID, err)
		}
		data = out
	}
	return data, mask, nil
}
