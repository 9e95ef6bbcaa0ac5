package b2extract_test

import (
	"encoding/binary"
	"testing"

	"github.com/KarpelesLab/b2extract"
)

// encodeLPString matches binreader.go's lengthPrefixedString positive-length convention: a 4-byte
// LE count (string bytes + trailing NUL) followed by the bytes and the NUL.
func encodeLPString(s string) []byte {
	out := make([]byte, 4+len(s)+1)
	binary.LittleEndian.PutUint32(out, uint32(len(s)+1))
	copy(out[4:], s)
	return out
}

func appendI32(buf []byte, v int32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, uint32(v))
	return append(buf, tmp...)
}

func appendU32(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}

// buildHeaderAsset constructs a synthetic asset header matching recoverFromHeader's parse order:
// tag, version (non-negative so no extra engine-version field), two zero custom-version fields
// (not the special (502,67) pair), header size, an empty folder name, package flags, then the
// name-count/name-table-offset pair, followed by the name table itself.
func buildHeaderAsset(names []string) []byte {
	buf := make([]byte, 0, 256)
	buf = appendI32(buf, 100) // tag
	buf = appendI32(buf, 0)   // version (non-negative: no engine-version field follows)
	buf = appendI32(buf, 0)   // v1
	buf = appendI32(buf, 0)   // v2 (not the special 502/67 pair)
	buf = appendI32(buf, 0)   // totalHeaderSize
	buf = append(buf, encodeLPString("")...)
	buf = appendU32(buf, 0) // packageFlags

	nameTableOffset := int32(100)
	buf = appendI32(buf, int32(len(names))) // a = nameCount
	buf = appendI32(buf, nameTableOffset)   // b = nameTableOffset

	for len(buf) < int(nameTableOffset) {
		buf = append(buf, 0)
	}
	for _, n := range names {
		buf = append(buf, encodeLPString(n)...)
		buf = appendU32(buf, 0) // per-name aux data
	}
	return buf
}

func TestRecoverPathHeaderStrategyPicksBestMaterialCandidate(t *testing.T) {
	data := buildHeaderAsset([]string{
		"MaterialExpression",
		"/Game/Materials/M_Wood.M_Wood",
		"/Engine/Something/Foo.Foo",
	})

	rp := b2extract.RecoverPath("M_Wood", ".uasset", data, true, false)
	if rp.Path != "/Game/Materials/M_Wood" {
		t.Errorf("Path = %q, want /Game/Materials/M_Wood", rp.Path)
	}
	if rp.Class != b2extract.ClassMaterial {
		t.Errorf("Class = %v, want ClassMaterial", rp.Class)
	}
}

func TestRecoverPathHeaderStrategyNoPathLikeNames(t *testing.T) {
	data := buildHeaderAsset([]string{"PlainName", "AnotherPlainName"})

	rp := b2extract.RecoverPath("Foo", ".uasset", data, true, false)
	if rp.Path != "" {
		t.Errorf("Path = %q, want empty (no path-like names)", rp.Path)
	}
}

func TestRecoverPathContentStrategyFallback(t *testing.T) {
	data := []byte("noise noise /Game/Meshes/Crate.Crate padding bytes here")

	rp := b2extract.RecoverPath("Crate", ".uasset", data, false, true)
	if rp.Path != "/Game/Meshes/Crate" {
		t.Errorf("Path = %q, want /Game/Meshes/Crate", rp.Path)
	}
}

func TestRecoverPathRejectsNonRecoverableExtension(t *testing.T) {
	data := buildHeaderAsset([]string{"/Game/Materials/M_Wood.M_Wood"})
	rp := b2extract.RecoverPath("M_Wood", ".uexp", data, true, true)
	if rp.Path != "" {
		t.Errorf("Path = %q, want empty for non-recoverable extension", rp.Path)
	}
}

func TestSanitizeRelativePathStripsDriveAndReservedNames(t *testing.T) {
	got := b2extract.SanitizeRelativePath(`C:\Game\CON\weird:name.txt`)
	want := "Game/_CON/weird_name.txt"
	if got != want {
		t.Errorf("SanitizeRelativePath = %q, want %q", got, want)
	}
}
