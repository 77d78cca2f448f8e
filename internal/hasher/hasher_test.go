package hasher

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	if err := os.WriteFile(path, []byte("def foo():\n    pass\n"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	h1, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile returned error: %v", err)
	}
	h2, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile returned error: %v", err)
	}
	if h1 != h2 || h1 == "" {
		t.Fatalf("expected stable non-empty hash, got %q and %q", h1, h2)
	}
}

func TestHashFileMissing(t *testing.T) {
	h, err := HashFile(filepath.Join(t.TempDir(), "does-not-exist.py"))
	if err != nil {
		t.Fatalf("HashFile must never raise to the pipeline, got error: %v", err)
	}
	if h != "" {
		t.Fatalf("expected empty hash for unreadable file, got %q", h)
	}
}

func TestHashFileInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bin.py")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x01}, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	h, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile must never raise to the pipeline, got error: %v", err)
	}
	if h != "" {
		t.Fatalf("expected empty hash for non-UTF-8 content, got %q", h)
	}
}

func TestHashContentChangesWithContent(t *testing.T) {
	if HashContent("a") == HashContent("b") {
		t.Fatal("expected different content to hash differently")
	}
}
