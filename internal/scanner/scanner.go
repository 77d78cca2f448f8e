// Package scanner walks a project tree and yields the files eligible for
// indexing, filtered by extension and a fixed ignore list.
//
// Grounded on the teacher's internal/utils.GetAllSourceFiles, trimmed of
// .gitignore parsing (not part of the indexable-set contract) and extended
// to the full language set this system supports.
package scanner

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// indexableExts is the set of extensions eligible for indexing, lower-cased.
var indexableExts = map[string]bool{
	".py":  true,
	".java": true,
	".cpp": true,
	".cc":  true,
	".cxx": true,
	".c":   true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".ts":  true,
	".tsx": true,
	".go":  true,
}

// ignoreSubstrings is matched as substring containment against the whole
// project-relative path string, not path-segment equality. This mirrors a
// known imprecision in the source this behavior is preserved from: a
// directory literally named e.g. "environment" (contains "env") or ".github"
// (contains ".git") would be skipped too.
var ignoreSubstrings = []string{
	"__pycache__",
	".pytest_cache",
	".venv",
	"env",
	"venv",
	"node_modules",
	".git",
	".idea",
	".vscode",
}

// File is one entry yielded by Walk.
type File struct {
	RelativePath string
	AbsolutePath string
}

// Walk returns every indexable file under projectRoot, sorted by relative
// path ascending, applying the extension filter, ignore list, and test-file
// exclusion rules in order.
func Walk(projectRoot string) ([]File, error) {
	var out []File

	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if isIgnored(rel) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !indexableExts[ext] {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.py") {
			return nil
		}

		out = append(out, File{RelativePath: rel, AbsolutePath: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out, nil
}

func isIgnored(relPath string) bool {
	for _, s := range ignoreSubstrings {
		if strings.Contains(relPath, s) {
			return true
		}
	}
	return false
}
