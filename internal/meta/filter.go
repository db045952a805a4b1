package meta

import (
	"encoding/binary"
	"fmt"
)

// Filter IDs. Blosc2 uses its registered HDF5 filter number so b2nd files
// carry the same codec identifier as hdf5-blosc2 datasets.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
	FilterBlosc2     uint16 = 32026
)

// FilterInfo describes a single filter in the pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16   // Bit 0: optional
	ClientData []uint32 // Filter parameters
}

// IsOptional returns true if this filter may be skipped when unavailable.
func (f *FilterInfo) IsOptional() bool {
	return f.Flags&0x01 != 0
}

// FilterPipeline lists the filters applied to every chunk, in encode order.
type FilterPipeline struct {
	Filters []FilterInfo
}

func (m *FilterPipeline) RecordType() RecordType { return TypeFilterPipeline }

// HasFilter returns true if the pipeline contains the given filter ID.
func (m *FilterPipeline) HasFilter(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// OnlyFilter reports whether the pipeline consists of exactly one filter
// with the given ID. The direct chunk read path requires this: it decodes
// the stored frame itself and cannot replay other pipeline stages.
func (m *FilterPipeline) OnlyFilter(id uint16) bool {
	return len(m.Filters) == 1 && m.Filters[0].ID == id
}

// Record layout: count(1), then per filter id(2) flags(2) ncd(2) cd(ncd*4).
func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("filter pipeline record too short")
	}
	fp := &FilterPipeline{Filters: make([]FilterInfo, data[0])}

	offset := 1
	for i := range fp.Filters {
		if offset+6 > len(data) {
			return nil, fmt.Errorf("filter %d truncated", i)
		}
		f := FilterInfo{
			ID:    binary.LittleEndian.Uint16(data[offset:]),
			Flags: binary.LittleEndian.Uint16(data[offset+2:]),
		}
		ncd := int(binary.LittleEndian.Uint16(data[offset+4:]))
		offset += 6
		if offset+ncd*4 > len(data) {
			return nil, fmt.Errorf("filter %d client data truncated", i)
		}
		f.ClientData = make([]uint32, ncd)
		for j := 0; j < ncd; j++ {
			f.ClientData[j] = binary.LittleEndian.Uint32(data[offset+j*4:])
		}
		offset += ncd * 4
		fp.Filters[i] = f
	}
	return fp, nil
}

func (m *FilterPipeline) encode() []byte {
	size := 1
	for _, f := range m.Filters {
		size += 6 + len(f.ClientData)*4
	}
	buf := make([]byte, size)
	buf[0] = byte(len(m.Filters))

	offset := 1
	for _, f := range m.Filters {
		binary.LittleEndian.PutUint16(buf[offset:], f.ID)
		binary.LittleEndian.PutUint16(buf[offset+2:], f.Flags)
		binary.LittleEndian.PutUint16(buf[offset+4:], uint16(len(f.ClientData)))
		offset += 6
		for _, cd := range f.ClientData {
			binary.LittleEndian.PutUint32(buf[offset:], cd)
			offset += 4
		}
	}
	return buf
}
