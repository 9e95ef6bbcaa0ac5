//go:build oodletest && oodlexz

package b2extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// xzTestBackend is the second pure-Go stand-in for Oodle, selected with -tags "oodletest oodlexz".
// Keeping two independent swappable test backends (this one and zstdTestBackend) mirrors the
// teacher carrying both comp_xz.go and comp_zstd.go for the same purpose on the production side.
type xzTestBackend struct{}

func init() {
	RegisterBackend(xzTestBackend{})
}

func (xzTestBackend) Name() string { return "xz-test" }

func (xzTestBackend) Decompress(comp []byte, uncompressedLen int) (int, []byte, error) {
	dec, err := xz.NewReader(bytes.NewReader(comp))
	if err != nil {
		return 0, nil, err
	}

	out := make([]byte, uncompressedLen)
	n, err := io.ReadFull(dec, out)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, nil, fmt.Errorf("xz test decode: %w", err)
	}
	return 1, out[:n], nil
}
