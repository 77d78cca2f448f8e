package config

import "strconv"

// GetInt returns the first non-empty environment variable among keys parsed
// as an integer, or def if none are set or parsing fails.
func GetInt(def int, keys ...string) int {
	raw := Get(keys...)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Tuning knobs for the chunker, overridable via environment variables.
const (
	DefaultMaxLength    = 8000
	DefaultChunkSize    = 4000
	DefaultChunkOverlap = 200
)

// MaxLength returns MAX_LENGTH, the embedding-text length above which a
// block must be split into chunks.
func MaxLength() int {
	return GetInt(DefaultMaxLength, "MAX_LENGTH")
}

// ChunkSize returns CHUNK_SIZE, the target chunk size in characters.
func ChunkSize() int {
	return GetInt(DefaultChunkSize, "CHUNK_SIZE")
}

// ChunkOverlap returns CHUNK_OVERLAP, the character overlap between
// adjacent chunks.
func ChunkOverlap() int {
	return GetInt(DefaultChunkOverlap, "CHUNK_OVERLAP")
}

// IndexDirName returns the name of the per-project index directory,
// ".code_index" unless overridden.
func IndexDirName() string {
	if v := Get("CODE_INDEX_DIR"); v != "" {
		return v
	}
	return ".code_index"
}
