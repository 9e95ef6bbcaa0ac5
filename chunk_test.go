package b2extract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KarpelesLab/b2extract"
)

func TestAssembleWindowStoreMode(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "c.b2container")
	payload := []byte("hello world, this is stored data")
	if err := os.WriteFile(containerPath, payload, 0o644); err != nil {
		t.Fatalf("write container: %s", err)
	}

	cc := b2extract.NewContainerCache()
	defer cc.Close()
	shim := b2extract.NewShim(nil)

	chunks := &b2extract.ChunkList{Chunks: []b2extract.Chunk{
		{CompOffset: 0, CompSize: int32(len(payload)), UncSize: int32(len(payload))},
	}}

	out, err := b2extract.AssembleWindow(cc, shim, containerPath, chunks, int64(len(payload)))
	if err != nil {
		t.Fatalf("AssembleWindow: %s", err)
	}
	if string(out) != string(payload) {
		t.Errorf("AssembleWindow = %q, want %q", out, payload)
	}
}

func TestAssembleWindowMultiChunkClipsToNeeded(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "c.b2container")
	payload := []byte("0123456789ABCDEFGHIJ") // 20 bytes, two 10-byte store chunks
	if err := os.WriteFile(containerPath, payload, 0o644); err != nil {
		t.Fatalf("write container: %s", err)
	}

	cc := b2extract.NewContainerCache()
	defer cc.Close()
	shim := b2extract.NewShim(nil)

	chunks := &b2extract.ChunkList{Chunks: []b2extract.Chunk{
		{CompOffset: 0, CompSize: 10, UncSize: 10},
		{CompOffset: 10, CompSize: 10, UncSize: 10},
	}}

	out, err := b2extract.AssembleWindow(cc, shim, containerPath, chunks, 15)
	if err != nil {
		t.Fatalf("AssembleWindow: %s", err)
	}
	if len(out) != 15 {
		t.Fatalf("len(out) = %d, want 15", len(out))
	}
	if string(out) != string(payload[:15]) {
		t.Errorf("AssembleWindow = %q, want %q", out, payload[:15])
	}
}

func TestAssembleWindowMissingContainer(t *testing.T) {
	cc := b2extract.NewContainerCache()
	defer cc.Close()
	shim := b2extract.NewShim(nil)

	chunks := &b2extract.ChunkList{Chunks: []b2extract.Chunk{{CompOffset: 0, CompSize: 4, UncSize: 4}}}

	if _, err := b2extract.AssembleWindow(cc, shim, "/nonexistent/path.b2container", chunks, 4); err == nil {
		t.Fatal("expected error for missing container")
	}
}
