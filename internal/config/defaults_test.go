package config

import "testing"

func TestGetIntDefaultsWhenUnset(t *testing.T) {
	if got := GetInt(42, "CODEBASE_TEST_UNSET_VAR"); got != 42 {
		t.Fatalf("expected default 42, got %d", got)
	}
}

func TestGetIntParsesSetValue(t *testing.T) {
	t.Setenv("CODEBASE_TEST_INT_VAR", "7")
	if got := GetInt(42, "CODEBASE_TEST_INT_VAR"); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestGetIntFallsBackOnBadValue(t *testing.T) {
	t.Setenv("CODEBASE_TEST_INT_VAR", "not-a-number")
	if got := GetInt(42, "CODEBASE_TEST_INT_VAR"); got != 42 {
		t.Fatalf("expected fallback to default on parse failure, got %d", got)
	}
}

func TestTuningDefaults(t *testing.T) {
	if MaxLength() != DefaultMaxLength {
		t.Errorf("expected default MaxLength=%d, got %d", DefaultMaxLength, MaxLength())
	}
	if ChunkSize() != DefaultChunkSize {
		t.Errorf("expected default ChunkSize=%d, got %d", DefaultChunkSize, ChunkSize())
	}
	if ChunkOverlap() != DefaultChunkOverlap {
		t.Errorf("expected default ChunkOverlap=%d, got %d", DefaultChunkOverlap, ChunkOverlap())
	}
}

func TestIndexDirNameOverride(t *testing.T) {
	if IndexDirName() != ".code_index" {
		t.Fatalf("expected default .code_index, got %s", IndexDirName())
	}
	t.Setenv("CODE_INDEX_DIR", ".custom_index")
	if IndexDirName() != ".custom_index" {
		t.Fatalf("expected override .custom_index, got %s", IndexDirName())
	}
}
