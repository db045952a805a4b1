package meta

import (
	"bytes"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-b2nd/internal/binary"
)

func chunkedDescriptor() *Descriptor {
	return &Descriptor{
		Dataspace: &Dataspace{
			Class:      DataspaceSimple,
			Dimensions: []uint64{100, 200},
		},
		Datatype: &Datatype{
			Class:  ClassFixedPoint,
			Size:   8,
			Signed: true,
		},
		Layout: &Layout{
			Class:          LayoutChunked,
			ChunkDims:      []uint32{10, 20},
			ChunkIndexAddr: 0x1234,
		},
		Filters: &FilterPipeline{Filters: []FilterInfo{
			{ID: FilterBlosc2, ClientData: []uint32{1, 65536}},
		}},
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	desc := chunkedDescriptor()

	encoded, err := EncodeDescriptor(desc)
	if err != nil {
		t.Fatalf("EncodeDescriptor: %v", err)
	}

	got, err := ReadDescriptor(binpkg.NewReader(bytes.NewReader(encoded)), 0)
	if err != nil {
		t.Fatalf("ReadDescriptor: %v", err)
	}

	if got.Dataspace.Class != DataspaceSimple {
		t.Errorf("dataspace class = %d", got.Dataspace.Class)
	}
	if len(got.Dataspace.Dimensions) != 2 || got.Dataspace.Dimensions[0] != 100 || got.Dataspace.Dimensions[1] != 200 {
		t.Errorf("dimensions = %v", got.Dataspace.Dimensions)
	}
	if got.Datatype.Class != ClassFixedPoint || got.Datatype.Size != 8 || !got.Datatype.Signed || got.Datatype.BigEndian {
		t.Errorf("datatype = %+v", got.Datatype)
	}
	if got.Layout.Class != LayoutChunked || got.Layout.ChunkIndexAddr != 0x1234 {
		t.Errorf("layout = %+v", got.Layout)
	}
	if len(got.Layout.ChunkDims) != 2 || got.Layout.ChunkDims[0] != 10 || got.Layout.ChunkDims[1] != 20 {
		t.Errorf("chunk dims = %v", got.Layout.ChunkDims)
	}
	if got.Filters == nil || len(got.Filters.Filters) != 1 {
		t.Fatalf("filters = %+v", got.Filters)
	}
	f := got.Filters.Filters[0]
	if f.ID != FilterBlosc2 || len(f.ClientData) != 2 || f.ClientData[0] != 1 || f.ClientData[1] != 65536 {
		t.Errorf("filter = %+v", f)
	}
}

func TestDescriptorContiguousRoundTrip(t *testing.T) {
	desc := &Descriptor{
		Dataspace: &Dataspace{Class: DataspaceScalar},
		Datatype:  &Datatype{Class: ClassFloatPoint, Size: 8, Signed: true},
		Layout:    &Layout{Class: LayoutContiguous, Address: 32, Size: 8},
	}

	encoded, err := EncodeDescriptor(desc)
	if err != nil {
		t.Fatalf("EncodeDescriptor: %v", err)
	}
	got, err := ReadDescriptor(binpkg.NewReader(bytes.NewReader(encoded)), 0)
	if err != nil {
		t.Fatalf("ReadDescriptor: %v", err)
	}

	if !got.Dataspace.IsScalar() {
		t.Error("dataspace should be scalar")
	}
	if got.Dataspace.NumElements() != 1 {
		t.Errorf("scalar NumElements = %d", got.Dataspace.NumElements())
	}
	if !got.Layout.IsContiguous() || got.Layout.Address != 32 || got.Layout.Size != 8 {
		t.Errorf("layout = %+v", got.Layout)
	}
	if got.Filters != nil {
		t.Errorf("unexpected filters: %+v", got.Filters)
	}
}

func TestDescriptorChecksumCorruption(t *testing.T) {
	encoded, err := EncodeDescriptor(chunkedDescriptor())
	if err != nil {
		t.Fatalf("EncodeDescriptor: %v", err)
	}

	// Flip a byte inside the dataspace dimensions so the records still
	// parse but the trailing checksum no longer matches.
	encoded[13] ^= 0xff
	_, err = ReadDescriptor(binpkg.NewReader(bytes.NewReader(encoded)), 0)
	if !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("expected ErrBadChecksum, got %v", err)
	}
}

func TestDescriptorBadSignature(t *testing.T) {
	encoded, err := EncodeDescriptor(chunkedDescriptor())
	if err != nil {
		t.Fatalf("EncodeDescriptor: %v", err)
	}

	copy(encoded, []byte("XXXX"))
	_, err = ReadDescriptor(binpkg.NewReader(bytes.NewReader(encoded)), 0)
	if !errors.Is(err, ErrBadDescriptor) {
		t.Fatalf("expected ErrBadDescriptor, got %v", err)
	}
}

func TestEncodeDescriptorMissingRecords(t *testing.T) {
	_, err := EncodeDescriptor(&Descriptor{
		Dataspace: &Dataspace{Class: DataspaceSimple, Dimensions: []uint64{4}},
	})
	if err == nil {
		t.Fatal("descriptor without datatype and layout should not encode")
	}
}

func TestDatatypeNative(t *testing.T) {
	tests := []struct {
		name   string
		dt     Datatype
		native bool
	}{
		{"little endian multi-byte", Datatype{Class: ClassFixedPoint, Size: 8}, true},
		{"big endian multi-byte", Datatype{Class: ClassFixedPoint, Size: 8, BigEndian: true}, false},
		{"big endian single byte", Datatype{Class: ClassFixedPoint, Size: 1, BigEndian: true}, true},
		{"opaque", Datatype{Class: ClassOpaque, Size: 12}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dt.IsNative(); got != tt.native {
				t.Errorf("IsNative = %v, want %v", got, tt.native)
			}
		})
	}
}

func TestPipelineOnlyFilter(t *testing.T) {
	one := &FilterPipeline{Filters: []FilterInfo{{ID: FilterBlosc2}}}
	if !one.OnlyFilter(FilterBlosc2) {
		t.Error("single blosc2 pipeline should match OnlyFilter")
	}
	if one.OnlyFilter(FilterDeflate) {
		t.Error("OnlyFilter should check the identifier")
	}

	two := &FilterPipeline{Filters: []FilterInfo{{ID: FilterShuffle}, {ID: FilterBlosc2}}}
	if two.OnlyFilter(FilterBlosc2) {
		t.Error("two-stage pipeline should not match OnlyFilter")
	}

	if (&FilterPipeline{}).OnlyFilter(FilterBlosc2) {
		t.Error("empty pipeline should not match OnlyFilter")
	}
}
