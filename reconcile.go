package b2extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var bulkSuffixPattern = regexp.MustCompile(`(?i)[_\-.](lod)?\d+$`)

// Reconcile is C8, the post-pass bulk-file placement step. The main pass stages any .ubulk file
// it can't immediately place under _ubulks because its owning .uasset hasn't been routed yet.
// Reconcile rebuilds the material- and all-asset directory memos from what actually landed on
// disk, then moves every staged file whose stem (after stripping up to three numeric/LOD
// suffixes) matches a known asset directory, preferring a material match over any other asset.
// Anything left unmatched stays in _ubulks.
func Reconcile(outputDir string, log *runLogger, dryRun bool) error {
	materialMemo, allMemo, err := rebuildMaterialMemo(outputDir)
	if err != nil {
		return err
	}

	ubulkDir := filepath.Join(outputDir, "_ubulks")
	entries, err := os.ReadDir(ubulkDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	used := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		dir, ok := matchBulkOwner(name, materialMemo, allMemo)
		if !ok {
			continue
		}

		destDir := filepath.Join(outputDir, dir)
		dest := uniqueDest(destDir, name, used)
		src := filepath.Join(ubulkDir, name)

		if log != nil {
			rel, _ := filepath.Rel(outputDir, dest)
			log.infof("reconcile: %s -> %s", name, filepath.ToSlash(rel))
		}
		if dryRun {
			continue
		}
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return fmt.Errorf("%w: %s", ErrWriteIO, err)
		}
		if err := os.Rename(src, dest); err != nil {
			return fmt.Errorf("%w: %s", ErrWriteIO, err)
		}
	}

	if !dryRun {
		removeIfEmpty(ubulkDir)
	}
	return nil
}

// rebuildMaterialMemo walks outputDir (skipping _ubulks) and records, for every .uasset/.uasset2
// found, the directory it lives in, keyed by lower-cased stem. allMemo holds every asset found;
// materialMemo holds only the subset that looks like a material, so a bulk file named after a
// material prefers its material directory over an unrelated asset that happens to share a stem.
func rebuildMaterialMemo(outputDir string) (materialMemo, allMemo map[string]string, err error) {
	materialMemo = make(map[string]string)
	allMemo = make(map[string]string)

	walkErr := filepath.WalkDir(outputDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == "_ubulks" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".uasset" && ext != ".uasset2" {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		rel, relErr := filepath.Rel(outputDir, filepath.Dir(p))
		if relErr != nil {
			return nil
		}
		dir := filepath.ToSlash(rel)
		lowerStem := strings.ToLower(stem)
		allMemo[lowerStem] = dir
		if isMaterialDirOrStem(lowerStem, dir) {
			materialMemo[lowerStem] = dir
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return materialMemo, allMemo, nil
}

// isMaterialDirOrStem reports whether an asset found at dir with the given lower-cased stem looks
// like a material, mirroring the router's own material heuristic so reconcile prefers the same
// directories the router would have chosen.
func isMaterialDirOrStem(lowerStem, dir string) bool {
	if strings.Contains(strings.ToLower(dir), "material") {
		return true
	}
	upper := strings.ToUpper(lowerStem)
	for _, prefix := range []string{"M_", "MI_", "MIC_", "MF_"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// matchBulkOwner tries name's stem against materialMemo first, then allMemo, retrying each up to
// three more times after stripping a trailing numeric or LOD-numeric suffix (_1, -2, .lod3, ...), the
// common naming skew between a bulk file and the asset it belongs to. Preferring materialMemo
// keeps a bulk file next to its owning material even when some unrelated asset shares its stem.
func matchBulkOwner(name string, materialMemo, allMemo map[string]string) (string, bool) {
	if dir, ok := matchBulkOwnerIn(name, materialMemo); ok {
		return dir, true
	}
	return matchBulkOwnerIn(name, allMemo)
}

func matchBulkOwnerIn(name string, memo map[string]string) (string, bool) {
	candidate := strings.TrimSuffix(name, filepath.Ext(name))

	for i := 0; i <= 3; i++ {
		if dir, ok := memo[strings.ToLower(candidate)]; ok {
			return dir, true
		}
		stripped := bulkSuffixPattern.ReplaceAllString(candidate, "")
		if stripped == candidate {
			break
		}
		candidate = stripped
	}
	return "", false
}

func uniqueDest(destDir, name string, used map[string]bool) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(destDir, name)

	for i := 1; ; i++ {
		if !used[candidate] {
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				break
			}
		}
		candidate = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	used[candidate] = true
	return candidate
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	os.Remove(dir)
}
