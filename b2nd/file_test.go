package b2nd

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestCreateDatasetInt64Blosc2(t *testing.T) {
	path := tempPath(t, "int64.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data := make([]int64, 100)
	for i := range data {
		data[i] = int64(i * 3)
	}
	_, err = f.CreateDataset("values", data, []uint64{100},
		WithChunks(5), WithBlosc2(CodecZstd))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("values")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}

	if !reflect.DeepEqual(ds.Shape(), []uint64{100}) {
		t.Errorf("Shape = %v, want [100]", ds.Shape())
	}
	if !reflect.DeepEqual(ds.ChunkShape(), []uint64{5}) {
		t.Errorf("ChunkShape = %v, want [5]", ds.ChunkShape())
	}
	if ds.ElementSize() != 8 {
		t.Errorf("ElementSize = %d, want 8", ds.ElementSize())
	}

	var result []int64
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("read back %d elements, mismatch with written data", len(result))
	}
}

func TestCreateDataset2DFloat64(t *testing.T) {
	path := tempPath(t, "float2d.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i) * 0.5
	}
	_, err = f.CreateDataset("grid", data, []uint64{10, 10},
		WithChunks(5, 5), WithBlosc2(CodecZstd))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("grid")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	var result []float64
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("2-D read back mismatch")
	}
}

func TestCreateDatasetLZ4(t *testing.T) {
	path := tempPath(t, "lz4.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data := make([]int32, 64)
	for i := range data {
		data[i] = int32(i % 7)
	}
	_, err = f.CreateDataset("lz4", data, []uint64{64},
		WithChunks(16), WithBlosc2(CodecLZ4))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("lz4")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	var result []int32
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("lz4 read back mismatch")
	}
}

func TestCreateDatasetContiguous(t *testing.T) {
	path := tempPath(t, "contiguous.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data := []uint16{10, 20, 30, 40, 50, 60}
	_, err = f.CreateDataset("plain", data, []uint64{2, 3})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("plain")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	if ds.ChunkShape() != nil {
		t.Errorf("contiguous dataset has ChunkShape %v", ds.ChunkShape())
	}
	var result []uint16
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("contiguous read back = %v, want %v", result, data)
	}
}

func TestCreateDatasetScalar(t *testing.T) {
	path := tempPath(t, "scalar.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err = f.CreateDataset("answer", []int64{42}, nil)
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("answer")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	if ds.Rank() != 0 {
		t.Errorf("scalar Rank = %d, want 0", ds.Rank())
	}
	if ds.NumElements() != 1 {
		t.Errorf("scalar NumElements = %d, want 1", ds.NumElements())
	}

	arr, err := ds.Slice()
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if !arr.IsScalar() {
		t.Fatalf("scalar slice has shape %v", arr.Shape())
	}
	var v int64
	if err := arr.Scalar(&v); err != nil {
		t.Fatalf("Scalar failed: %v", err)
	}
	if v != 42 {
		t.Errorf("scalar value = %d, want 42", v)
	}
}

func TestCreateDatasetBigEndian(t *testing.T) {
	path := tempPath(t, "bigendian.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data := []uint32{0x01020304, 0xAABBCCDD}
	_, err = f.CreateDataset("be", data, []uint64{2},
		WithChunks(2), WithBlosc2(CodecZstd), WithBigEndian())
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("be")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	if !ds.BigEndian() {
		t.Error("BigEndian should be true")
	}
	var result []uint32
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("big-endian read back = %x, want %x", result, data)
	}
}

func TestClassicFilterPipeline(t *testing.T) {
	path := tempPath(t, "classic.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data := make([]float32, 200)
	for i := range data {
		data[i] = float32(i) * 1.25
	}
	_, err = f.CreateDataset("filtered", data, []uint64{200},
		WithChunks(64), WithShuffle(), WithDeflate(6), WithFletcher32())
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("filtered")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	if got := ds.Filters(); len(got) != 3 {
		t.Errorf("Filters = %v, want three entries", got)
	}
	var result []float32
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("filtered read back mismatch")
	}
}

func TestOpaqueDataset(t *testing.T) {
	path := tempPath(t, "opaque.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	blob := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	_, err = f.CreateDataset("blobs", blob, []uint64{3}, WithOpaque(4))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("blobs")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	if ds.ElementSize() != 4 {
		t.Errorf("ElementSize = %d, want 4", ds.ElementSize())
	}
	var result []byte
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, blob) {
		t.Errorf("opaque read back = %v, want %v", result, blob)
	}
}

func TestBlosc2WithClassicFiltersRejected(t *testing.T) {
	f, err := Create(tempPath(t, "conflict.b2nd"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	_, err = f.CreateDataset("bad", []int64{1, 2}, []uint64{2},
		WithChunks(2), WithBlosc2(CodecZstd), WithDeflate(6))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("blosc2 + deflate: got %v, want ErrUnsupported", err)
	}
}

func TestZeroExtentRejected(t *testing.T) {
	f, err := Create(tempPath(t, "zero.b2nd"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	_, err = f.CreateDataset("empty", []int64{}, []uint64{0})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("zero extent: got %v, want ErrUnsupported", err)
	}
}

func TestScalarChunkedRejected(t *testing.T) {
	f, err := Create(tempPath(t, "scalarchunked.b2nd"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	_, err = f.CreateDataset("bad", []int64{7}, nil, WithBlosc2(CodecZstd))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("scalar + blosc2: got %v, want ErrUnsupported", err)
	}
}

func TestSizeShapeMismatchRejected(t *testing.T) {
	f, err := Create(tempPath(t, "mismatch.b2nd"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	if _, err := f.CreateDataset("short", []int64{1, 2, 3}, []uint64{4}); err == nil {
		t.Error("three elements for shape [4] should fail")
	}
}

func TestDatasetNames(t *testing.T) {
	path := tempPath(t, "names.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if _, err := f.CreateDataset(name, []int64{1}, []uint64{1}); err != nil {
			t.Fatalf("CreateDataset %q failed: %v", name, err)
		}
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	want := []string{"alpha", "beta", "gamma"}
	if got := f2.Datasets(); !reflect.DeepEqual(got, want) {
		t.Errorf("Datasets = %v, want %v", got, want)
	}
}

func TestDatasetNotFound(t *testing.T) {
	path := tempPath(t, "notfound.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	if _, err := f2.Dataset("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDuplicateDatasetRejected(t *testing.T) {
	f, err := Create(tempPath(t, "dup.b2nd"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	if _, err := f.CreateDataset("twice", []int64{1}, []uint64{1}); err != nil {
		t.Fatalf("first CreateDataset failed: %v", err)
	}
	if _, err := f.CreateDataset("twice", []int64{2}, []uint64{1}); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate name: got %v, want ErrExists", err)
	}
}

func TestOpenNotB2ND(t *testing.T) {
	path := tempPath(t, "garbage.bin")
	if err := os.WriteFile(path, []byte("this is not a container at all, just text"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrNotB2ND) {
		t.Errorf("got %v, want ErrNotB2ND", err)
	}
}

func TestReadOnlyCreateRejected(t *testing.T) {
	path := tempPath(t, "readonly.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	f.Close()

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	if _, err := f2.CreateDataset("nope", []int64{1}, []uint64{1}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("got %v, want ErrReadOnly", err)
	}
}

func TestOpenReadWriteAppend(t *testing.T) {
	path := tempPath(t, "append.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	first := []int64{1, 2, 3, 4}
	if _, err := f.CreateDataset("first", first, []uint64{4},
		WithChunks(2), WithBlosc2(CodecZstd)); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	f.Close()

	f2, err := OpenReadWrite(path)
	if err != nil {
		t.Fatalf("OpenReadWrite failed: %v", err)
	}
	second := []float64{1.5, 2.5}
	if _, err := f2.CreateDataset("second", second, []uint64{2}); err != nil {
		t.Fatalf("CreateDataset on reopened file failed: %v", err)
	}
	f2.Close()

	f3, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f3.Close()

	if got := f3.Datasets(); !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Fatalf("Datasets = %v", got)
	}

	ds1, err := f3.Dataset("first")
	if err != nil {
		t.Fatalf("Dataset first failed: %v", err)
	}
	var got1 []int64
	if err := ds1.Read(&got1); err != nil {
		t.Fatalf("Read first failed: %v", err)
	}
	if !reflect.DeepEqual(got1, first) {
		t.Errorf("first = %v, want %v", got1, first)
	}

	ds2, err := f3.Dataset("second")
	if err != nil {
		t.Fatalf("Dataset second failed: %v", err)
	}
	var got2 []float64
	if err := ds2.Read(&got2); err != nil {
		t.Fatalf("Read second failed: %v", err)
	}
	if !reflect.DeepEqual(got2, second) {
		t.Errorf("second = %v, want %v", got2, second)
	}
}

func TestClosedFileRejected(t *testing.T) {
	path := tempPath(t, "closed.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.CreateDataset("data", []int64{1, 2}, []uint64{2}); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := f.Dataset("data"); !errors.Is(err, ErrClosed) {
		t.Errorf("Dataset after Close: got %v, want ErrClosed", err)
	}
	if _, err := f.CreateDataset("more", []int64{1}, []uint64{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateDataset after Close: got %v, want ErrClosed", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestFlushMakesFileReadable(t *testing.T) {
	path := tempPath(t, "flush.b2nd")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	data := []int64{9, 8, 7}
	if _, err := f.CreateDataset("live", data, []uint64{3}); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := f.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// The file on disk is complete while the writer stays open.
	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open after Flush failed: %v", err)
	}
	defer f2.Close()

	ds, err := f2.Dataset("live")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	var result []int64
	if err := ds.Read(&result); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, data) {
		t.Errorf("flushed read back = %v, want %v", result, data)
	}
}
