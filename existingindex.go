package b2extract

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ExistingIndex is a pre-scan of files already present in the output directory: the C7 component,
// used by the router's skip-existing rule.
type ExistingIndex struct {
	paths     map[string]bool
	basenames map[string]bool
}

// BuildExistingIndex walks root and records every regular file's slash-normalized relative path
// and basename, both lower-cased for case-insensitive lookups. A root that doesn't exist yet
// yields an empty index rather than an error.
func BuildExistingIndex(root string) (*ExistingIndex, error) {
	idx := &ExistingIndex{
		paths:     make(map[string]bool),
		basenames: make(map[string]bool),
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		idx.addPath(rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

// HasPath reports whether relPath (relative to the output directory) was already present.
func (idx *ExistingIndex) HasPath(relPath string) bool {
	return idx.paths[strings.ToLower(filepath.ToSlash(relPath))]
}

// HasBasename reports whether any existing file anywhere under the output directory shares this
// basename, the coarser check the router's skip-existing rule uses
func (idx *ExistingIndex) HasBasename(name string) bool {
	return idx.basenames[strings.ToLower(name)]
}

func (idx *ExistingIndex) addPath(relPath string) {
	relPath = strings.ToLower(filepath.ToSlash(relPath))
	idx.paths[relPath] = true
	idx.basenames[strings.ToLower(filepath.Base(relPath))] = true
}
