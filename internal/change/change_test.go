package change

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func newProject(t *testing.T) (root, indexDir string) {
	t.Helper()
	root = t.TempDir()
	indexDir = filepath.Join(root, ".code_index")
	return root, indexDir
}

func TestDetectFreshProjectAllAdded(t *testing.T) {
	root, indexDir := newProject(t)
	writeFile(t, root, "a.py", "def foo(x): pass\n")
	writeFile(t, root, "b.go", "package main\nfunc Bar() {}\n")

	d := New(root, indexDir)
	result, err := d.Detect()
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if len(result.Added) != 2 || len(result.Modified) != 0 || len(result.Deleted) != 0 || len(result.Unchanged) != 0 {
		t.Fatalf("expected all-added on fresh project, got %+v", result)
	}
}

func TestDetectClassificationExhaustive(t *testing.T) {
	root, indexDir := newProject(t)
	writeFile(t, root, "a.py", "def foo(x): pass\n")
	writeFile(t, root, "b.go", "package main\nfunc Bar() {}\n")

	d := New(root, indexDir)
	if _, err := d.Detect(); err != nil {
		t.Fatalf("first detect: %v", err)
	}

	// Modify a.py, add c.ts, delete b.go.
	writeFile(t, root, "a.py", "def foo(x, y): pass\n")
	writeFile(t, root, "c.ts", "function baz(a,b){}\n")
	if err := os.Remove(filepath.Join(root, "b.go")); err != nil {
		t.Fatalf("remove b.go: %v", err)
	}

	result, err := d.Detect()
	if err != nil {
		t.Fatalf("second detect: %v", err)
	}

	if _, ok := result.Modified["a.py"]; !ok {
		t.Errorf("expected a.py modified, got %+v", result.Modified)
	}
	if _, ok := result.Added["c.ts"]; !ok {
		t.Errorf("expected c.ts added, got %+v", result.Added)
	}
	if _, ok := result.Deleted["b.go"]; !ok {
		t.Errorf("expected b.go deleted, got %+v", result.Deleted)
	}

	current := map[string]struct{}{"a.py": {}, "c.ts": {}}
	union := map[string]struct{}{}
	for p := range result.Added {
		union[p] = struct{}{}
	}
	for p := range result.Modified {
		union[p] = struct{}{}
	}
	for p := range result.Unchanged {
		union[p] = struct{}{}
	}
	if len(union) != len(current) {
		t.Fatalf("added ∪ modified ∪ unchanged must equal current file set: got %v, want %v", union, current)
	}
	for p := range result.Deleted {
		if _, ok := current[p]; ok {
			t.Fatalf("deleted path %s must not be in the current file set", p)
		}
	}
}

func TestDetectFastPathNoOp(t *testing.T) {
	root, indexDir := newProject(t)
	writeFile(t, root, "a.py", "def foo(x): pass\n")

	d := New(root, indexDir)
	if _, err := d.Detect(); err != nil {
		t.Fatalf("first detect: %v", err)
	}

	before, err := os.ReadFile(filepath.Join(indexDir, treeFileName))
	if err != nil {
		t.Fatalf("read persisted tree: %v", err)
	}

	result, err := d.Detect()
	if err != nil {
		t.Fatalf("second detect: %v", err)
	}
	if len(result.Added) != 0 || len(result.Modified) != 0 || len(result.Deleted) != 0 {
		t.Fatalf("expected no-op detect, got %+v", result)
	}
	if len(result.Unchanged) != 1 {
		t.Fatalf("expected exactly the one file as unchanged, got %+v", result.Unchanged)
	}

	after, err := os.ReadFile(filepath.Join(indexDir, treeFileName))
	if err != nil {
		t.Fatalf("read persisted tree: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("fast path must not rewrite the persisted tree")
	}
}

func TestDetectUnreadablePriorTreeTreatedAsAbsent(t *testing.T) {
	root, indexDir := newProject(t)
	writeFile(t, root, "a.py", "def foo(x): pass\n")

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		t.Fatalf("mkdir index dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(indexDir, treeFileName), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt tree: %v", err)
	}

	d := New(root, indexDir)
	result, err := d.Detect()
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if _, ok := result.Added["a.py"]; !ok {
		t.Fatalf("expected a.py to be added when prior tree is unreadable, got %+v", result)
	}
}
