// Package models holds the data types shared across the indexing pipeline.
package models

import "time"

// CodeBlock is the unit indexed in the vector store: a syntactically
// meaningful fragment of source code (function, method, class, type
// declaration) extracted from one file.
type CodeBlock struct {
	// ID is the stable identity "<file_path>:<name>:<line>:<column>".
	ID string
	// Type is "function", "async_function", "class", or a raw
	// language-specific tree-sitter node kind.
	Type string
	// Name is the declared identifier, or "<anon>"/the node kind if none.
	Name string
	// FilePath is project-relative, forward-slash separated.
	FilePath string
	// LineNumber and EndLineNumber are 1-based inclusive.
	LineNumber    int
	EndLineNumber int
	// Code is the literal source text of the block.
	Code string
	// Signature is a human-readable one-liner.
	Signature string
}

// ChunkedBlock is derived from a CodeBlock whose embedding text exceeded
// MAX_LENGTH and was split into overlapping pieces.
type ChunkedBlock struct {
	CodeBlock
	// Parent is the id of the CodeBlock this chunk was split from.
	Parent string
	// Index is the 1-based chunk number; Count is the total chunk count.
	Index int
	Count int
}

// VectorRecord is the unit stored in the vector collection.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Metadata  map[string]interface{}
	Document  string
}

// RecordMetadata builds the scalar-only metadata map for a block, per the
// VectorRecord invariant that metadata values must be scalar.
func RecordMetadata(b CodeBlock, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"type":         b.Type,
		"name":         b.Name,
		"file_path":    b.FilePath,
		"line_number":  b.LineNumber,
		"signature":    b.Signature,
		"last_updated": now.UTC().Format(time.RFC3339),
	}
}

// Document returns the block's code truncated to the vector store's
// document-length limit.
func Document(code string) string {
	const maxDocumentLength = 10000
	if len(code) <= maxDocumentLength {
		return code
	}
	return code[:maxDocumentLength]
}
