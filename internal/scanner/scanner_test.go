package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestWalkFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.go", "package main\n")
	writeFile(t, dir, "a.py", "def foo(): pass\n")
	writeFile(t, dir, "notes.md", "not indexable\n")
	writeFile(t, dir, "test_skip.py", "def t(): pass\n")
	writeFile(t, dir, "node_modules/dep.js", "module.exports = {}\n")
	writeFile(t, dir, ".git/objects/pack", "binary\n")

	files, err := Walk(dir)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelativePath)
	}

	want := []string{"a.py", "b.go"}
	if len(rels) != len(want) {
		t.Fatalf("got %v, want %v", rels, want)
	}
	for i := range want {
		if rels[i] != want[i] {
			t.Fatalf("got %v, want %v", rels, want)
		}
	}
}

func TestWalkDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.go", "package main\n")
	writeFile(t, dir, "m.go", "package main\n")
	writeFile(t, dir, "a.go", "package main\n")

	files, err := Walk(dir)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	if files[0].RelativePath != "a.go" || files[1].RelativePath != "m.go" || files[2].RelativePath != "z.go" {
		t.Fatalf("expected ascending sort, got %v", files)
	}
}
