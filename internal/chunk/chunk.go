// Package chunk splits a code block's embedding text into overlapping
// pieces when it exceeds the embedding model's input budget.
//
// The splitting algorithm is a recursive-separator splitter in the style of
// LangChain's RecursiveCharacterTextSplitter (referenced by the original
// Python implementation this system is distilled from); no library in the
// example pack provides a Go equivalent, so this is a justified hand-rolled
// exception to the "never fall back to stdlib" rule, documented in
// DESIGN.md.
package chunk

import (
	"fmt"
	"strings"

	"codebase-indexer/internal/config"
	"codebase-indexer/internal/models"
)

var separators = []string{"\n\n", "\n", " ", ""}

// PrepareText renders a CodeBlock into the canonical embedding text.
func PrepareText(b models.CodeBlock) string {
	return fmt.Sprintf("Type: %s\nName: %s\nSignature: %s\nCode: %s", b.Type, b.Name, b.Signature, b.Code)
}

// Split divides text into chunks holding at most CHUNK_SIZE of new text
// each, recursing through the separator list until a separator yields
// pieces within budget, falling back to a hard character split via the
// empty-string separator. Every chunk after the first also starts with up
// to CHUNK_OVERLAP characters carried over from the end of the previous
// chunk, so a chunk can be longer than CHUNK_SIZE by that overlap. If text
// already fits within MAX_LENGTH, it is returned unsplit.
func Split(text string) []string {
	maxLength := config.MaxLength()
	if len(text) <= maxLength {
		return []string{text}
	}
	return splitRecursive(text, separators, config.ChunkSize(), config.ChunkOverlap())
}

func splitRecursive(text string, seps []string, chunkSize, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, chunkSize, overlap)
	}

	sep := seps[0]
	var pieces []string
	if sep == "" {
		return hardSplit(text, chunkSize, overlap)
	}
	pieces = strings.Split(text, sep)

	// If this separator doesn't actually divide the text, or any piece is
	// still oversize, try the next separator down the chain.
	if len(pieces) <= 1 {
		return splitRecursive(text, seps[1:], chunkSize, overlap)
	}

	merged, newLens := mergeWithOverlap(pieces, sep, chunkSize, overlap)

	var out []string
	for i, m := range merged {
		if newLens[i] > chunkSize {
			out = append(out, splitRecursive(m, seps[1:], chunkSize, overlap)...)
		} else {
			out = append(out, m)
		}
	}
	return out
}

// mergeWithOverlap greedily packs pieces (rejoined by sep) into chunks,
// carrying the trailing overlap characters of one chunk into the start of
// the next. chunkSize bounds the *new* content per chunk; the carried-over
// overlap prefix rides on top of that budget rather than eating into it, so
// N chunks cover N*chunkSize of new source content, not N*chunkSize minus
// (N-1) overlaps. It also returns each chunk's new-content length, which
// exceeds chunkSize only when a single piece is oversize on its own.
func mergeWithOverlap(pieces []string, sep string, chunkSize, overlap int) ([]string, []int) {
	var chunks []string
	var newLens []int
	var current strings.Builder
	newLen := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		newLens = append(newLens, newLen)
		current.Reset()
		newLen = 0
	}

	for _, p := range pieces {
		candidate := p
		if current.Len() > 0 {
			candidate = sep + p
		}
		if current.Len() > 0 && newLen+len(candidate) > chunkSize {
			prev := current.String()
			flush()
			if overlap > 0 && overlap < len(prev) {
				current.WriteString(prev[len(prev)-overlap:])
			}
			if current.Len() > 0 {
				current.WriteString(sep)
				newLen += len(sep)
			}
			current.WriteString(p)
			newLen += len(p)
		} else {
			current.WriteString(candidate)
			newLen += len(candidate)
		}
	}
	flush()
	return chunks, newLens
}

// hardSplit is the empty-string-separator fallback: a raw character split
// that guarantees progress on pathological input (no separator present).
// Each chunk's logical end advances by chunkSize over the previous chunk's
// end, with the trailing overlap runes of the previous chunk re-included at
// the start rather than counted against the new chunk's budget — matching
// mergeWithOverlap's accounting so the two splitting paths agree on how
// many chunks a given input produces.
func hardSplit(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	if chunkSize <= 0 {
		return []string{text}
	}

	var out []string
	newEnd := 0
	for newEnd < len(runes) {
		next := newEnd + chunkSize
		if next > len(runes) {
			next = len(runes)
		}
		start := newEnd - overlap
		if start < 0 {
			start = 0
		}
		out = append(out, string(runes[start:next]))
		newEnd = next
	}
	return out
}

// ToChunkedBlocks converts a block and its split texts into ChunkedBlocks
// bearing the id/name/signature-decoration rules spec'd for chunked output.
// When there is exactly one chunk (the block fit under MAX_LENGTH), the
// original block's text is returned unchanged, undecorated.
func ToChunkedBlocks(b models.CodeBlock, texts []string) []models.ChunkedBlock {
	if len(texts) <= 1 {
		code := b.Code
		if len(texts) == 1 {
			code = texts[0]
		}
		cb := b
		cb.Code = code
		return []models.ChunkedBlock{{CodeBlock: cb, Parent: b.ID, Index: 1, Count: 1}}
	}

	out := make([]models.ChunkedBlock, 0, len(texts))
	for i, t := range texts {
		n := i + 1
		cb := b
		cb.ID = fmt.Sprintf("%s_chunk_%d", b.ID, n)
		cb.Name = fmt.Sprintf("%s_chunk_%d", b.Name, n)
		cb.Signature = fmt.Sprintf("%s (part %d)", b.Signature, n)
		cb.Code = t
		out = append(out, models.ChunkedBlock{CodeBlock: cb, Parent: b.ID, Index: n, Count: len(texts)})
	}
	return out
}
