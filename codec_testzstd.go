//go:build oodletest && !oodlexz

package b2extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdTestBackend stands in for the native Oodle library in tests built with -tags oodletest: it
// treats "compressed" bytes as a zstd stream rather than an Oodle one. This lets the container
// cache and chunk assembler be exercised end to end without linking anything native.
type zstdTestBackend struct{}

func init() {
	RegisterBackend(zstdTestBackend{})
}

func (zstdTestBackend) Name() string { return "zstd-test" }

func (zstdTestBackend) Decompress(comp []byte, uncompressedLen int) (int, []byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(comp))
	if err != nil {
		return 0, nil, err
	}
	defer dec.Close()

	out := make([]byte, uncompressedLen)
	n, err := io.ReadFull(dec, out)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, nil, fmt.Errorf("zstd test decode: %w", err)
	}
	return 1, out[:n], nil
}
