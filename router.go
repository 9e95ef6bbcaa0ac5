package b2extract

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config collects every driver input the CLI and browse front ends expose.
type Config struct {
	OutputDir         string
	EnableHeaderPath  bool
	EnableContentPath bool
	SkipWemFiles      bool
	SkipBinkFiles     bool
	SkipExistingFiles bool
	SkipResAndAce     bool
	SkipConfigFiles   bool
	OnlyAssets        bool
	LogLevel          LogLevel
	DryRun            bool
}

// RouterState is the run-scoped state the router threads across entries: the material-directory
// memo (so a material's bulk siblings land next to its .uasset) and the set of output paths
// already claimed, for collision suffixing.
type RouterState struct {
	materialDirs map[string]string
	usedPaths    map[string]bool
}

// NewRouterState returns an empty RouterState, the per-run state C6 threads across entries.
// Reconcile (C8) does not use it; it rebuilds its own memos from the output directory.
func NewRouterState() *RouterState {
	return &RouterState{
		materialDirs: make(map[string]string),
		usedPaths:    make(map[string]bool),
	}
}

// RouteDecision is what the router decided for one logical entry.
type RouteDecision struct {
	Skip       bool
	SkipReason string
	RelPath    string
}

var binkExts = map[string]bool{".bik": true, ".bk2": true}
var resAceExts = map[string]bool{".res": true, ".ace": true}
var configExts = map[string]bool{
	".ini": true, ".cfg": true, ".json": true, ".xml": true,
	".toml": true, ".yaml": true, ".yml": true, ".properties": true, ".conf": true,
}

// bulkExtPattern matches the bulk family: ".ubulk" optionally followed by a numeric suffix
// (.ubulk, .ubulk1, .ubulk23, ...).
var bulkExtPattern = regexp.MustCompile(`^\.ubulk\d*$`)

func isBulkExt(ext string) bool {
	return bulkExtPattern.MatchString(strings.ToLower(ext))
}

var localizationTokens = map[string]bool{
	"localized": true, "unlocalized": true, "localisation": true, "localization": true, "loc": true,
}

// RouteEntry applies the priority-ordered rule chain to one logical name and returns either a
// skip with a reason, or the output-relative path to write it to. containerName is the
// .b2container basename the entry's bytes live in, consulted by the localization rule alongside
// the logical name.
func (rs *RouterState) RouteEntry(cfg *Config, logicalName string, existing *ExistingIndex, recovered RecoveredPath, containerName string) RouteDecision {
	ext := strings.ToLower(path.Ext(logicalName))
	stem := strings.TrimSuffix(path.Base(logicalName), path.Ext(logicalName))
	lowerStem := strings.ToLower(stem)

	// 1. filter-skip rules
	if cfg.OnlyAssets && !isRecoverableExt(ext) && !isBulkExt(ext) {
		return RouteDecision{Skip: true, SkipReason: "only-assets filter"}
	}
	if cfg.SkipResAndAce && resAceExts[ext] {
		return RouteDecision{Skip: true, SkipReason: "res/ace filter"}
	}
	if cfg.SkipConfigFiles && configExts[ext] {
		return RouteDecision{Skip: true, SkipReason: "config filter"}
	}
	if cfg.SkipBinkFiles && binkExts[ext] {
		return RouteDecision{Skip: true, SkipReason: "bink filter"}
	}
	if cfg.SkipWemFiles && hasWwiseSegment(logicalName, recovered.Path) {
		return RouteDecision{Skip: true, SkipReason: "wwise audio filter"}
	}

	// 2. existing-filename skip
	if cfg.SkipExistingFiles && existing != nil && existing.HasBasename(path.Base(logicalName)) {
		return RouteDecision{Skip: true, SkipReason: "already extracted"}
	}

	// 3. localization skip, gated on OnlyAssets/SkipWemFiles
	if (cfg.OnlyAssets || cfg.SkipWemFiles) && isLocalizationPath(logicalName, containerName) {
		return RouteDecision{Skip: true, SkipReason: "localization"}
	}

	// 4. no-extension skip
	if ext == "" {
		return RouteDecision{Skip: true, SkipReason: "no extension"}
	}

	// 5. config routing
	if configExts[ext] {
		return RouteDecision{RelPath: rs.claim(cfg, path.Join("Configs", path.Base(logicalName)))}
	}

	// 6. bulk family routing: ride along with whatever directory the owning .uasset claimed, or
	// stage in _ubulks for reconcile to place once that .uasset is seen.
	if isBulkExt(ext) {
		dir, ok := rs.materialDirs[lowerStem]
		if !ok {
			dir = "_ubulks"
		}
		return RouteDecision{RelPath: rs.claim(cfg, path.Join(dir, path.Base(logicalName)))}
	}

	// 7. material .uasset routing, memoized (case-insensitively) so its bulk siblings can find the
	// same directory regardless of case skew between the asset and its bulk file names.
	if isRecoverableExt(ext) && isMaterialAsset(stem, recovered) {
		dir := materialDirFor(recovered)
		rs.materialDirs[lowerStem] = dir
		return RouteDecision{RelPath: rs.claim(cfg, path.Join(dir, path.Base(logicalName)))}
	}

	// 8. fallback routing: the recovered directory if we have one, else misc.
	dir := "misc"
	if recovered.Path != "" {
		if d := path.Dir(SanitizeRelativePath(recovered.Path)); d != "." && d != "" {
			dir = d
		}
	}
	return RouteDecision{RelPath: rs.claim(cfg, path.Join(dir, path.Base(logicalName)))}
}

// hasWwiseSegment reports whether any of paths has a path segment (case-insensitive) equal to
// "wwiseaudio" or "wwisetriton", checked against the logical name and whatever directory path
// recovery proposed, not just a .wem-extension substring match.
func hasWwiseSegment(paths ...string) bool {
	for _, p := range paths {
		if p == "" {
			continue
		}
		for _, seg := range strings.Split(normalizeSeparators(p), "/") {
			l := strings.ToLower(seg)
			if l == "wwiseaudio" || l == "wwisetriton" {
				return true
			}
		}
	}
	return false
}

// isLocalizationPath reports whether logicalName or containerName has a path/word segment that is
// a known localization token (localized, unlocalized, localisation, localization, loc) or looks
// like a language code (a pure-letter 2 or 4 character segment).
func isLocalizationPath(logicalName, containerName string) bool {
	return hasLocalizationSegment(logicalName) || hasLocalizationSegment(containerName)
}

func hasLocalizationSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range splitWordSegments(s) {
		l := strings.ToLower(seg)
		if localizationTokens[l] {
			return true
		}
		if isLanguageCodeSegment(l) {
			return true
		}
	}
	return false
}

// splitWordSegments splits on path separators and common word delimiters, so both directory
// structure ("L10N/en/...") and underscore/dash-joined container names ("Pak_en_Localized") yield
// discrete tokens to test.
func splitWordSegments(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '\\' || r == '_' || r == '-' || r == '.'
	})
}

// isLanguageCodeSegment reports whether seg looks like a bare language code: 2 or 4 letters, all
// ASCII alphabetic.
func isLanguageCodeSegment(seg string) bool {
	if len(seg) != 2 && len(seg) != 4 {
		return false
	}
	for _, r := range seg {
		if !isASCIILetter(byte(r)) {
			return false
		}
	}
	return true
}

func isMaterialAsset(stem string, recovered RecoveredPath) bool {
	if recovered.Class == ClassMaterial {
		return true
	}
	lp := strings.ToLower(recovered.Path)
	if strings.Contains(lp, "/material/") || strings.Contains(lp, "/materials/") {
		return true
	}
	upper := strings.ToUpper(stem)
	for _, prefix := range []string{"M_", "MI_", "MIC_", "MF_"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

func materialDirFor(recovered RecoveredPath) string {
	if recovered.Path != "" {
		if d := path.Dir(SanitizeRelativePath(recovered.Path)); d != "." && d != "" {
			return d
		}
	}
	return "Materials"
}

// claim registers relPath as used, suffixing it _1, _2, ... when it collides with a path already
// used this run or a file already present on disk at cfg.OutputDir, and returns the path actually
// reserved.
func (rs *RouterState) claim(cfg *Config, relPath string) string {
	relPath = path.Clean(relPath)
	if !rs.usedPaths[relPath] && !existsOnDisk(cfg.OutputDir, relPath) {
		rs.usedPaths[relPath] = true
		return relPath
	}

	ext := path.Ext(relPath)
	base := strings.TrimSuffix(relPath, ext)
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i) + ext
		if !rs.usedPaths[candidate] && !existsOnDisk(cfg.OutputDir, candidate) {
			rs.usedPaths[candidate] = true
			return candidate
		}
	}
}

func existsOnDisk(outputDir, relPath string) bool {
	if outputDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(outputDir, filepath.FromSlash(relPath)))
	return err == nil
}
