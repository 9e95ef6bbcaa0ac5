package b2extract

import (
	"fmt"
	"sync"
)

// Backend wraps a native (or native-like) decompressor. Decompress mirrors the Oodle
// OodleLZ_Decompress contract: status <= 0 means the call itself reported failure; a positive
// status with a buffer that doesn't look decompressed is treated the same way by the shim.
type Backend interface {
	Name() string
	Decompress(comp []byte, uncompressedLen int) (status int, out []byte, err error)
}

var (
	backendMu sync.RWMutex
	backend   Backend // nil until an implementation registers itself from an init()
)

// RegisterBackend installs the active codec backend. Only one backend is active at a time; the
// last one to register wins, letting build-tag-gated init() functions each call into a shared
// registration point.
func RegisterBackend(b Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backend = b
}

func activeBackend() Backend {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backend
}

// Shim is the C1 codec FFI shim. It never returns a hard error from Decompress: every failure
// mode (library not loadable, missing entry point, non-positive status, implausible output) is
// soft and degrades to returning the original compressed bytes, exactly as spec'd. The caller
// (the chunk assembler) is responsible for treating a store-mode chunk (compSize == uncSize)
// specially; the shim only ever decompresses or passes through.
type Shim struct {
	mu                  sync.Mutex
	consecutiveFailures int64
	failThreshold       int64
	log                 LogFunc
}

// NewShim builds a codec shim. Its failThreshold, the number of consecutive failures after which
// the shim stops attempting the backend, is fixed at 10^9 and not configurable, so in practice
// the shim always keeps trying.
func NewShim(log LogFunc) *Shim {
	return &Shim{failThreshold: 1_000_000_000, log: log}
}

func (s *Shim) warn(format string, args ...any) {
	if s.log != nil {
		s.log(LogWarning, fmt.Sprintf(format, args...))
	}
}

func (s *Shim) noteFailure() {
	s.mu.Lock()
	s.consecutiveFailures++
	s.mu.Unlock()
}

func (s *Shim) noteSuccess() {
	s.mu.Lock()
	s.consecutiveFailures = 0
	s.mu.Unlock()
}

func (s *Shim) disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures >= s.failThreshold
}

// Decompress decompresses comp into a buffer of uncompressedLen bytes. On any soft failure it
// returns comp unchanged (the caller still gets bytes to write) and never a non-nil error -
// callers that need to distinguish "really decompressed" from "passthrough" should compare
// len(out) against uncompressedLen, or call DecompressStrict.
func (s *Shim) Decompress(comp []byte, uncompressedLen int) []byte {
	out, _ := s.DecompressStrict(comp, uncompressedLen)
	return out
}

// DecompressStrict is like Decompress but also reports whether the native backend actually
// produced the data (false means passthrough happened).
func (s *Shim) DecompressStrict(comp []byte, uncompressedLen int) ([]byte, bool) {
	b := activeBackend()
	if b == nil {
		s.noteFailure()
		s.warn("⚠️ oodle backend not loaded, returning compressed bytes as-is")
		return comp, false
	}
	if s.disabled() {
		s.warn("⚠️ oodle codec disabled after %d consecutive failures, returning compressed bytes as-is", s.consecutiveFailures)
		return comp, false
	}

	status, out, err := b.Decompress(comp, uncompressedLen)
	if err != nil {
		s.noteFailure()
		s.warn("⚠️ oodle decompress error via %s: %s", b.Name(), err)
		return comp, false
	}
	if status <= 0 {
		s.noteFailure()
		s.warn("⚠️ oodle decompress returned status %d via %s", status, b.Name())
		return comp, false
	}
	if !looksDecompressed(out) {
		s.noteFailure()
		s.warn("⚠️ oodle decompress output via %s did not look decompressed, treating as failure", b.Name())
		return comp, false
	}

	s.noteSuccess()
	return out, true
}

// looksDecompressed is a cheap heuristic to catch a backend that "succeeds" while producing
// garbage or a copy of the input: it samples a stride of the buffer and requires at least 9
// distinct byte values, which real asset data practically always has and a degenerate buffer
// (all zeroes, a tight repeating pattern) usually doesn't.
func looksDecompressed(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	stride := len(buf) / 512
	if stride < 1 {
		stride = 1
	}
	seen := make(map[byte]struct{}, 32)
	for i := 0; i < len(buf); i += stride {
		seen[buf[i]] = struct{}{}
		if len(seen) >= 9 {
			return true
		}
	}
	return len(seen) >= 9
}
