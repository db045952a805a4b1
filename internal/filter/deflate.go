package filter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/robert-malhotra/go-b2nd/internal/meta"
)

// Deflate implements the zlib deflate filter. Client data holds the
// compression level; absent or zero means the default level.
type Deflate struct{}

func (Deflate) ID() uint16 {
	return meta.FilterDeflate
}

func (Deflate) Decode(data []byte, _ []uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflating chunk: %w", err)
	}
	return out, nil
}

func (Deflate) Encode(data []byte, clientData []uint32) ([]byte, error) {
	level := zlib.DefaultCompression
	if len(clientData) > 0 && clientData[0] > 0 {
		level = int(clientData[0])
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("invalid deflate level %d: %w", level, err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
