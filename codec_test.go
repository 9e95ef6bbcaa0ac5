package b2extract_test

import (
	"errors"
	"testing"

	"github.com/KarpelesLab/b2extract"
)

type fakeBackend struct {
	name   string
	status int
	out    []byte
	err    error
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Decompress(comp []byte, uncompressedLen int) (int, []byte, error) {
	return f.status, f.out, f.err
}

func TestShimDecompressSuccess(t *testing.T) {
	want := make([]byte, 32)
	for i := range want {
		want[i] = byte(i * 7) // varied bytes so the looksDecompressed heuristic passes
	}
	b2extract.RegisterBackend(&fakeBackend{name: "fake", status: 1, out: want})

	shim := b2extract.NewShim(nil)
	out, ok := shim.DecompressStrict([]byte("comp"), len(want))
	if !ok {
		t.Fatal("expected DecompressStrict to report success")
	}
	if string(out) != string(want) {
		t.Errorf("out = %v, want %v", out, want)
	}
}

func TestShimDecompressFailureFallsBackToPassthrough(t *testing.T) {
	b2extract.RegisterBackend(&fakeBackend{name: "fake", status: -1, err: errors.New("boom")})

	shim := b2extract.NewShim(nil)
	comp := []byte("still-compressed-bytes")
	out, ok := shim.DecompressStrict(comp, 100)
	if ok {
		t.Fatal("expected DecompressStrict to report failure")
	}
	if string(out) != string(comp) {
		t.Errorf("out = %q, want passthrough %q", out, comp)
	}
}

func TestShimDecompressRejectsImplausibleOutput(t *testing.T) {
	flat := make([]byte, 64) // all zero bytes, fails the looksDecompressed heuristic
	b2extract.RegisterBackend(&fakeBackend{name: "fake", status: 1, out: flat})

	shim := b2extract.NewShim(nil)
	comp := []byte("original-compressed")
	out, ok := shim.DecompressStrict(comp, len(flat))
	if ok {
		t.Fatal("expected implausible output to be treated as failure")
	}
	if string(out) != string(comp) {
		t.Errorf("out = %q, want passthrough %q", out, comp)
	}
}

func TestShimDecompressNoBackendRegistered(t *testing.T) {
	// Clear whatever backend earlier tests registered; with none active, Decompress must still
	// return bytes (the passthrough) rather than nil.
	b2extract.RegisterBackend(nil)
	shim := b2extract.NewShim(nil)
	comp := []byte("payload")
	out := shim.Decompress(comp, len(comp))
	if out == nil {
		t.Fatal("expected Decompress to never return nil")
	}
}
