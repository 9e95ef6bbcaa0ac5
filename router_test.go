package b2extract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KarpelesLab/b2extract"
)

func TestRouteEntryConfigFileRouting(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{}

	decision := rs.RouteEntry(cfg, "Settings/game.ini", nil, b2extract.RecoveredPath{}, "")
	if decision.Skip {
		t.Fatalf("unexpected skip: %s", decision.SkipReason)
	}
	if decision.RelPath != "Configs/game.ini" {
		t.Errorf("RelPath = %q, want Configs/game.ini", decision.RelPath)
	}
}

func TestRouteEntryConfigExtensionsCoverFullSet(t *testing.T) {
	exts := []string{".ini", ".cfg", ".json", ".xml", ".toml", ".yaml", ".yml", ".properties", ".conf"}
	for _, ext := range exts {
		rs := b2extract.NewRouterState()
		cfg := &b2extract.Config{}
		name := "settings" + ext
		decision := rs.RouteEntry(cfg, name, nil, b2extract.RecoveredPath{}, "")
		if decision.Skip {
			t.Errorf("%s: unexpected skip: %s", ext, decision.SkipReason)
			continue
		}
		if decision.RelPath != "Configs/"+name {
			t.Errorf("%s: RelPath = %q, want Configs/%s", ext, decision.RelPath, name)
		}
	}
}

func TestRouteEntrySkipsNoExtension(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{}

	decision := rs.RouteEntry(cfg, "SomeFileNoExt", nil, b2extract.RecoveredPath{}, "")
	if !decision.Skip {
		t.Fatal("expected skip for extensionless entry")
	}
	if decision.SkipReason != "no extension" {
		t.Errorf("SkipReason = %q, want %q", decision.SkipReason, "no extension")
	}
}

func TestRouteEntryBulkFilesFollowOwningMaterial(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{}

	recovered := b2extract.RecoveredPath{Path: "/Game/Materials/M_Wood", Class: b2extract.ClassMaterial}
	assetDecision := rs.RouteEntry(cfg, "M_Wood.uasset", nil, recovered, "")
	if assetDecision.Skip {
		t.Fatalf("unexpected skip: %s", assetDecision.SkipReason)
	}
	if assetDecision.RelPath != "Game/Materials/M_Wood.uasset" {
		t.Errorf("asset RelPath = %q, want Game/Materials/M_Wood.uasset", assetDecision.RelPath)
	}

	bulkDecision := rs.RouteEntry(cfg, "M_Wood.ubulk", nil, b2extract.RecoveredPath{}, "")
	if bulkDecision.Skip {
		t.Fatalf("unexpected skip: %s", bulkDecision.SkipReason)
	}
	if bulkDecision.RelPath != "Game/Materials/M_Wood.ubulk" {
		t.Errorf("bulk RelPath = %q, want Game/Materials/M_Wood.ubulk", bulkDecision.RelPath)
	}
}

func TestRouteEntryBulkFilesMatchCaseInsensitiveStem(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{}

	recovered := b2extract.RecoveredPath{Path: "/Game/Materials/M_Wood", Class: b2extract.ClassMaterial}
	assetDecision := rs.RouteEntry(cfg, "M_Wood.uasset", nil, recovered, "")
	if assetDecision.Skip {
		t.Fatalf("unexpected skip: %s", assetDecision.SkipReason)
	}

	bulkDecision := rs.RouteEntry(cfg, "m_wood.ubulk3", nil, b2extract.RecoveredPath{}, "")
	if bulkDecision.Skip {
		t.Fatalf("unexpected skip: %s", bulkDecision.SkipReason)
	}
	if bulkDecision.RelPath != "Game/Materials/m_wood.ubulk3" {
		t.Errorf("bulk RelPath = %q, want Game/Materials/m_wood.ubulk3", bulkDecision.RelPath)
	}
}

func TestRouteEntryBulkFileWithoutOwnerStagesInUbulks(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{}

	decision := rs.RouteEntry(cfg, "Orphan.ubulk", nil, b2extract.RecoveredPath{}, "")
	if decision.Skip {
		t.Fatalf("unexpected skip: %s", decision.SkipReason)
	}
	if decision.RelPath != "_ubulks/Orphan.ubulk" {
		t.Errorf("RelPath = %q, want _ubulks/Orphan.ubulk", decision.RelPath)
	}
}

func TestRouteEntryCollisionSuffixing(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{}

	first := rs.RouteEntry(cfg, "foo.ini", nil, b2extract.RecoveredPath{}, "")
	second := rs.RouteEntry(cfg, "foo.ini", nil, b2extract.RecoveredPath{}, "")

	if first.RelPath != "Configs/foo.ini" {
		t.Errorf("first RelPath = %q, want Configs/foo.ini", first.RelPath)
	}
	if second.RelPath != "Configs/foo_1.ini" {
		t.Errorf("second RelPath = %q, want Configs/foo_1.ini", second.RelPath)
	}
}

func TestRouteEntryCollisionSuffixingAgainstExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Configs"), 0o755); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Configs", "foo.ini"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write foo.ini: %s", err)
	}

	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{OutputDir: dir}

	decision := rs.RouteEntry(cfg, "foo.ini", nil, b2extract.RecoveredPath{}, "")
	if decision.RelPath != "Configs/foo_1.ini" {
		t.Errorf("RelPath = %q, want Configs/foo_1.ini", decision.RelPath)
	}
}

func TestRouteEntrySkipsAlreadyExtracted(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dup.dat"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write dup.dat: %s", err)
	}
	existing, err := b2extract.BuildExistingIndex(dir)
	if err != nil {
		t.Fatalf("BuildExistingIndex: %s", err)
	}

	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{SkipExistingFiles: true}

	decision := rs.RouteEntry(cfg, "somewhere/dup.dat", existing, b2extract.RecoveredPath{}, "")
	if !decision.Skip {
		t.Fatal("expected skip for already-extracted basename")
	}
	if decision.SkipReason != "already extracted" {
		t.Errorf("SkipReason = %q, want %q", decision.SkipReason, "already extracted")
	}
}

func TestRouteEntrySkipsLocalization(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{OnlyAssets: true}

	decision := rs.RouteEntry(cfg, "Game/L10N/en/Strings.uasset", nil, b2extract.RecoveredPath{}, "")
	if !decision.Skip {
		t.Fatal("expected skip for localization path")
	}
}

func TestRouteEntrySkipsLocalizationByContainerName(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{SkipWemFiles: true}

	decision := rs.RouteEntry(cfg, "Assets/Strings.uasset", nil, b2extract.RecoveredPath{}, "pakchunk0_localized.b2container")
	if !decision.Skip {
		t.Fatal("expected skip for localized container name")
	}
}

func TestRouteEntryLocalizationNotGatedOff(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{}

	decision := rs.RouteEntry(cfg, "Game/L10N/en/Strings.locres", nil, b2extract.RecoveredPath{}, "")
	if decision.Skip {
		t.Fatal("localization rule must not fire when neither OnlyAssets nor SkipWemFiles is set")
	}
}

func TestRouteEntrySkipsWwiseSegmentRegardlessOfExtension(t *testing.T) {
	rs := b2extract.NewRouterState()
	cfg := &b2extract.Config{SkipWemFiles: true}

	decision := rs.RouteEntry(cfg, "Audio/WwiseAudio/Footsteps.bnk", nil, b2extract.RecoveredPath{}, "")
	if !decision.Skip {
		t.Fatal("expected skip for wwiseaudio path segment regardless of extension")
	}
}
