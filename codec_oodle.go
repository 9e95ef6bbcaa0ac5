//go:build !oodletest

package b2extract

import (
	"fmt"

	oodle "github.com/new-world-tools/go-oodle"
)

// oodleBackend wraps github.com/new-world-tools/go-oodle, the same binding LibGGPK3-style bundle
// readers use for Path-of-Exile-family archive formats. It is registered as the active backend
// by default; builds that need a deterministic, native-library-free codec for testing select the
// oodletest build tag instead (see codec_testzstd.go / codec_testxz.go).
type oodleBackend struct{}

func init() {
	RegisterBackend(oodleBackend{})
}

func (oodleBackend) Name() string { return "oodle" }

// Decompress calls into Oodle with fuzzSafe=1, checkCrc=0, verbosity=0, threadPhase=0 and no
// user buffers or callbacks, as the shim contract requires. go-oodle's Decompress panics if the
// native library failed to load; that's caught here and reported as ErrCodecUnavailable rather
// than letting it escape to the caller
func (b oodleBackend) Decompress(comp []byte, uncompressedLen int) (status int, out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = 0
			out = nil
			err = fmt.Errorf("%w: %v", ErrCodecUnavailable, r)
		}
	}()

	decoded, decErr := oodle.Decompress(comp, int64(uncompressedLen))
	if decErr != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrCodecFailure, decErr)
	}
	return 1, decoded, nil
}
