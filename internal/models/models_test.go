package models

import (
	"strings"
	"testing"
	"time"
)

func TestRecordMetadataFields(t *testing.T) {
	b := CodeBlock{Type: "function", Name: "foo", FilePath: "a.py", LineNumber: 3, Signature: "foo(x)"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	meta := RecordMetadata(b, now)
	if meta["type"] != "function" || meta["name"] != "foo" || meta["file_path"] != "a.py" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta["line_number"] != 3 {
		t.Errorf("expected line_number=3, got %v", meta["line_number"])
	}
	if meta["last_updated"] != "2026-01-02T03:04:05Z" {
		t.Errorf("expected RFC3339 UTC timestamp, got %v", meta["last_updated"])
	}
}

func TestDocumentTruncation(t *testing.T) {
	short := "def foo(): pass"
	if Document(short) != short {
		t.Errorf("expected short code unchanged, got %q", Document(short))
	}

	long := strings.Repeat("x", 10050)
	truncated := Document(long)
	if len(truncated) != 10000 {
		t.Fatalf("expected truncation to 10000 chars, got %d", len(truncated))
	}
}
