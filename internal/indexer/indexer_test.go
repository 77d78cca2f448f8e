package indexer

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCollectionNameFormat(t *testing.T) {
	root := "/home/dev/my-project"
	got := CollectionName(root)

	sum := md5.Sum([]byte(root))
	want := filepath.Base(root) + "-" + hex.EncodeToString(sum[:])[:8]
	if got != want {
		t.Fatalf("CollectionName(%q)=%q, want %q", root, got, want)
	}
}

func TestCollectionNameStableAcrossCalls(t *testing.T) {
	root := "/var/projects/widget"
	if CollectionName(root) != CollectionName(root) {
		t.Fatal("expected CollectionName to be deterministic for a fixed path")
	}
}

func TestCollectionNameDistinguishesSameBasenameDifferentPaths(t *testing.T) {
	a := CollectionName("/home/alice/widget")
	b := CollectionName("/home/bob/widget")
	if a == b {
		t.Fatalf("expected distinct collection names for distinct paths with the same basename, both got %q", a)
	}
}

func TestWriteAndReadMetadata(t *testing.T) {
	dir := t.TempDir()
	p := &Pipeline{IndexDir: dir}

	if err := p.writeMetadata(3); err != nil {
		t.Fatalf("writeMetadata: %v", err)
	}

	meta, err := ReadMetadata(dir)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta.TotalFilesIndexed != 3 {
		t.Errorf("expected TotalFilesIndexed=3, got %d", meta.TotalFilesIndexed)
	}
	if meta.LastIndexTime == nil {
		t.Error("expected LastIndexTime to be set")
	}
}

func TestReadMetadataMissingFile(t *testing.T) {
	if _, err := ReadMetadata(t.TempDir()); err == nil {
		t.Fatal("expected error reading metadata from an empty directory")
	}
}

func TestReadFileHashesFromPersistedTree(t *testing.T) {
	dir := t.TempDir()
	doc := map[string]interface{}{
		"root_hash": "abc",
		"tree": map[string]interface{}{
			"hash":      "abc",
			"is_leaf":   true,
			"file_path": "a.py",
		},
		"timestamp": time.Now(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "merkle_tree.json"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	hashes, err := ReadFileHashes(dir)
	if err != nil {
		t.Fatalf("ReadFileHashes: %v", err)
	}
	if hashes["a.py"] != "abc" {
		t.Fatalf("expected a.py=abc, got %v", hashes)
	}
}
