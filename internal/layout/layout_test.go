package layout

import (
	"errors"
	"reflect"
	"testing"
)

// grid4x5 is a 4x5 row-major byte grid; element (r, c) holds r*10+c.
func grid4x5() []byte {
	data := make([]byte, 20)
	for r := 0; r < 4; r++ {
		for c := 0; c < 5; c++ {
			data[r*5+c] = byte(r*10 + c)
		}
	}
	return data
}

func TestExtractHyperslab(t *testing.T) {
	data := grid4x5()
	dims := []uint64{4, 5}

	got, err := ExtractHyperslab(data, dims, []uint64{1, 2}, []uint64{2, 3}, 1)
	if err != nil {
		t.Fatalf("ExtractHyperslab: %v", err)
	}
	want := []byte{12, 13, 14, 22, 23, 24}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hyperslab = %v, want %v", got, want)
	}
}

func TestExtractHyperslabFull(t *testing.T) {
	data := grid4x5()
	dims := []uint64{4, 5}

	got, err := ExtractHyperslab(data, dims, []uint64{0, 0}, dims, 1)
	if err != nil {
		t.Fatalf("ExtractHyperslab: %v", err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("full hyperslab should equal source")
	}
}

func TestExtractHyperslabEmpty(t *testing.T) {
	got, err := ExtractHyperslab(grid4x5(), []uint64{4, 5}, []uint64{2, 2}, []uint64{0, 3}, 1)
	if err != nil {
		t.Fatalf("ExtractHyperslab: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("zero-count axis should yield empty result, got %v", got)
	}
}

func TestExtractHyperslabOutOfBounds(t *testing.T) {
	_, err := ExtractHyperslab(grid4x5(), []uint64{4, 5}, []uint64{3, 3}, []uint64{2, 2}, 1)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("got %v, want ErrOutOfBounds", err)
	}

	_, err = ExtractHyperslab(grid4x5(), []uint64{4, 5}, []uint64{0}, []uint64{2}, 1)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("rank mismatch: got %v, want ErrOutOfBounds", err)
	}
}

func TestExtractHyperslabMultiByteElements(t *testing.T) {
	// 2x3 grid of 2-byte elements, each element (i, i) for index i.
	data := []byte{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5}

	got, err := ExtractHyperslab(data, []uint64{2, 3}, []uint64{1, 1}, []uint64{1, 2}, 2)
	if err != nil {
		t.Fatalf("ExtractHyperslab: %v", err)
	}
	want := []byte{4, 4, 5, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hyperslab = %v, want %v", got, want)
	}
}

func TestExtractStrided(t *testing.T) {
	data := grid4x5()
	dims := []uint64{4, 5}

	// Rows 0 and 2, columns 1, 3.
	got, err := ExtractStrided(data, dims, []uint64{0, 1}, []uint64{2, 2}, []uint64{2, 2}, 1)
	if err != nil {
		t.Fatalf("ExtractStrided: %v", err)
	}
	want := []byte{1, 3, 21, 23}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("strided = %v, want %v", got, want)
	}
}

func TestExtractStridedUnitStep(t *testing.T) {
	data := grid4x5()
	dims := []uint64{4, 5}

	got, err := ExtractStrided(data, dims, []uint64{1, 2}, []uint64{2, 3}, []uint64{1, 1}, 1)
	if err != nil {
		t.Fatalf("ExtractStrided: %v", err)
	}
	want, err := ExtractHyperslab(data, dims, []uint64{1, 2}, []uint64{2, 3}, 1)
	if err != nil {
		t.Fatalf("ExtractHyperslab: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unit-step strided = %v, want hyperslab result %v", got, want)
	}
}

func TestExtractStridedBounds(t *testing.T) {
	data := grid4x5()
	dims := []uint64{4, 5}

	// Last index 0 + 2*2 = 4 reaches past the axis-0 extent of 4.
	_, err := ExtractStrided(data, dims, []uint64{0, 0}, []uint64{3, 1}, []uint64{2, 1}, 1)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("stride past extent: got %v, want ErrOutOfBounds", err)
	}

	_, err = ExtractStrided(data, dims, []uint64{0, 0}, []uint64{2, 1}, []uint64{0, 1}, 1)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("zero step: got %v, want ErrOutOfBounds", err)
	}
}

func TestCopyOverlapTiling(t *testing.T) {
	// Reassemble a 4x6 grid from 2x3 tiles and check the result matches a
	// direct fill. Exercises the same math the chunked reader uses.
	dims := []uint64{4, 6}
	tileDims := []uint32{2, 3}

	want := make([]byte, 24)
	for i := range want {
		want[i] = byte(i)
	}

	out := make([]byte, 24)
	zero := []uint64{0, 0}
	for _, coord := range [][]uint64{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		origin := []uint64{coord[0] * 2, coord[1] * 3}
		clipped := ClippedChunkDims(dims, tileDims, coord)

		// Build the tile from the reference grid.
		tile := make([]byte, clipped[0]*clipped[1])
		for r := uint64(0); r < clipped[0]; r++ {
			for c := uint64(0); c < clipped[1]; c++ {
				tile[r*clipped[1]+c] = want[(origin[0]+r)*6+origin[1]+c]
			}
		}

		end := []uint64{origin[0] + clipped[0], origin[1] + clipped[1]}
		CopyOverlap(out, tile, origin, end, origin, clipped, zero, dims, 1)
	}

	if !reflect.DeepEqual(out, want) {
		t.Errorf("reassembled grid = %v, want %v", out, want)
	}
}

func TestCopyOverlapPartial(t *testing.T) {
	// Copy the overlap of the tile at origin (1, 1) extent 2x2 with the
	// destination window origin (0, 0) extent 2x2: one element.
	src := []byte{11, 12, 21, 22}
	dst := make([]byte, 4)

	CopyOverlap(dst, src,
		[]uint64{1, 1}, []uint64{2, 2},
		[]uint64{1, 1}, []uint64{2, 2},
		[]uint64{0, 0}, []uint64{2, 2}, 1)

	want := []byte{0, 0, 0, 11}
	if !reflect.DeepEqual(dst, want) {
		t.Errorf("dst = %v, want %v", dst, want)
	}
}

func TestCopyOverlapEmptyRange(t *testing.T) {
	dst := []byte{9, 9}
	CopyOverlap(dst, []byte{1, 2},
		[]uint64{1}, []uint64{1},
		[]uint64{0}, []uint64{2},
		[]uint64{0}, []uint64{2}, 1)
	if dst[0] != 9 || dst[1] != 9 {
		t.Errorf("empty overlap must not write, dst = %v", dst)
	}
}

func TestCopyOverlapScalar(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := make([]byte, 4)
	CopyOverlap(dst, src, nil, nil, nil, nil, nil, nil, 4)
	if !reflect.DeepEqual(dst, src) {
		t.Errorf("scalar copy = %v, want %v", dst, src)
	}
}

func TestGridDims(t *testing.T) {
	tests := []struct {
		dims      []uint64
		chunkDims []uint32
		want      []uint64
	}{
		{[]uint64{100}, []uint32{5}, []uint64{20}},
		{[]uint64{10, 10}, []uint32{5, 5}, []uint64{2, 2}},
		{[]uint64{10, 10}, []uint32{3, 4}, []uint64{4, 3}},
		{[]uint64{1}, []uint32{5}, []uint64{1}},
	}
	for _, tt := range tests {
		got := GridDims(tt.dims, tt.chunkDims)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("GridDims(%v, %v) = %v, want %v", tt.dims, tt.chunkDims, got, tt.want)
		}
	}
}

func TestClippedChunkDims(t *testing.T) {
	dims := []uint64{10, 10}
	chunkDims := []uint32{3, 4}

	interior := ClippedChunkDims(dims, chunkDims, []uint64{0, 0})
	if !reflect.DeepEqual(interior, []uint64{3, 4}) {
		t.Errorf("interior chunk = %v", interior)
	}

	edge := ClippedChunkDims(dims, chunkDims, []uint64{3, 2})
	if !reflect.DeepEqual(edge, []uint64{1, 2}) {
		t.Errorf("corner chunk = %v, want [1 2]", edge)
	}
}
