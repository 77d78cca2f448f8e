// Package indexer orchestrates change detection, extraction, chunking,
// embedding, and vector-store reconciliation for one project.
//
// Grounded on the teacher's internal/indexer/indexer.go for overall pipeline
// shape (NumWorkers-style concurrency, metadata persistence), rebuilt
// around internal/change's Merkle-based detection instead of the teacher's
// flat file-hash map.
package indexer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"codebase-indexer/internal/change"
	"codebase-indexer/internal/chunk"
	"codebase-indexer/internal/config"
	"codebase-indexer/internal/embeddings"
	"codebase-indexer/internal/hasher"
	"codebase-indexer/internal/logging"
	"codebase-indexer/internal/merkle"
	"codebase-indexer/internal/models"
	"codebase-indexer/internal/parser"
	"codebase-indexer/internal/scanner"
	"codebase-indexer/internal/vectorstore"

	"golang.org/x/sync/errgroup"
)

// NumWorkers bounds how many files are extracted and embedded concurrently
// during a single pass.
const NumWorkers = 4

// embeddingDimension is fixed for the configured model family; Qdrant needs
// it up front to create or validate the collection.
const embeddingDimension = 1536

// Metadata is the persisted metadata.json shape.
type Metadata struct {
	LastIndexTime     *time.Time `json:"last_index_time"`
	TotalFilesIndexed int        `json:"total_files_indexed"`
	MerkleRootHash    string     `json:"merkle_root_hash"`
}

const metadataFileName = "metadata.json"

// Pipeline ties together every collaborator needed to run a full or
// incremental indexing pass for one project.
type Pipeline struct {
	ProjectRoot string
	IndexDir    string
	Collection  string

	store       *vectorstore.Adapter
	embedder    embeddings.Embedder
	detector    *change.Detector
	log         *slog.Logger
	callTimeout time.Duration
}

// New builds a Pipeline rooted at projectRoot, deriving the index directory
// and collection name per the naming scheme in the data model.
func New(projectRoot string, store *vectorstore.Adapter, embedder embeddings.Embedder, log *slog.Logger) (*Pipeline, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("indexer: resolve project root: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}

	indexDir := filepath.Join(abs, config.IndexDirName())
	return &Pipeline{
		ProjectRoot: abs,
		IndexDir:    indexDir,
		Collection:  CollectionName(abs),
		store:       store,
		embedder:    embedder,
		detector:    change.New(abs, indexDir),
		log:         log,
		callTimeout: 30 * time.Second,
	}, nil
}

// EmbedForQuery embeds free-form query text using the pipeline's
// configured embedding client, for the query CLI/tool surface.
func (p *Pipeline) EmbedForQuery(ctx context.Context, text string) ([]float32, error) {
	return p.embedder.Embed(ctx, text)
}

// CollectionName derives "<basename>-<first 8 hex of md5(abs path)>".
func CollectionName(absProjectRoot string) string {
	sum := md5.Sum([]byte(absProjectRoot))
	return fmt.Sprintf("%s-%s", filepath.Base(absProjectRoot), hex.EncodeToString(sum[:])[:8])
}

// FullIndex treats every indexable file as newly added: there is no step
// for deleted files, so records of files no longer on disk are not removed.
// Each scanned file's own prior records are still cleared by processFiles
// before its blocks are upserted.
func (p *Pipeline) FullIndex(ctx context.Context) error {
	files, err := scanner.Walk(p.ProjectRoot)
	if err != nil {
		return fmt.Errorf("indexer: scan: %w", err)
	}

	hashes := make(map[string]string, len(files))
	paths := make([]string, 0, len(files))
	for _, f := range files {
		h, _ := hasher.HashFile(f.AbsolutePath)
		if h == "" {
			continue
		}
		hashes[f.RelativePath] = h
		paths = append(paths, f.RelativePath)
	}

	if err := p.store.EnsureCollection(ctx, p.Collection, embeddingDimension); err != nil {
		return fmt.Errorf("indexer: ensure collection: %w", err)
	}

	if err := p.processFiles(ctx, paths); err != nil {
		return err
	}

	if err := p.detector.RebuildAndPersist(hashes); err != nil {
		return fmt.Errorf("indexer: persist tree: %w", err)
	}
	return p.writeMetadata(len(hashes))
}

// IncrementalIndex runs ChangeDetector and reconciles the store against its
// classification, deleting before upserting so renames never leave stale
// records visible at the new path.
func (p *Pipeline) IncrementalIndex(ctx context.Context) error {
	result, err := p.detector.Detect()
	if err != nil {
		return fmt.Errorf("indexer: detect: %w", err)
	}

	if len(result.Added) == 0 && len(result.Modified) == 0 && len(result.Deleted) == 0 {
		p.log.Debug("incremental pass found no changes", "project", p.ProjectRoot)
		return nil
	}

	if err := p.store.EnsureCollection(ctx, p.Collection, embeddingDimension); err != nil {
		return fmt.Errorf("indexer: ensure collection: %w", err)
	}

	for _, path := range result.Deleted.Keys() {
		if err := p.store.DeleteByFile(ctx, p.Collection, path); err != nil {
			p.log.Warn("delete by file failed", "path", path, "error", err)
		}
	}
	if len(result.Deleted) > 0 {
		hashes := result.Current
		if err := p.detector.RebuildAndPersist(hashes); err != nil {
			return fmt.Errorf("indexer: persist tree after deletes: %w", err)
		}
	}

	changed := append(result.Added.Keys(), result.Modified.Keys()...)
	if err := p.processFiles(ctx, changed); err != nil {
		return err
	}

	if err := p.detector.RebuildAndPersist(result.Current); err != nil {
		return fmt.Errorf("indexer: persist tree: %w", err)
	}
	return p.writeMetadata(len(result.Current))
}

// chunkedText pairs a chunked block with its prepared embedding text so the
// embedding stage doesn't need to recompute it.
type chunkedText struct {
	block models.CodeBlock
	text  string
}

// processFiles deletes any prior records for each path (a no-op for newly
// added paths), extracts and chunks blocks across up to NumWorkers files at
// a time, embeds across the same worker pool, and upserts the survivors. A
// per-item embedding failure is logged and skipped; it never aborts the
// batch. Mirrors the teacher's worker-pool-over-files shape, expressed with
// errgroup instead of a raw WaitGroup/channel pair.
func (p *Pipeline) processFiles(ctx context.Context, relPaths []string) error {
	perFile := make([][]chunkedText, len(relPaths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(NumWorkers)
	for i, rel := range relPaths {
		i, rel := i, rel
		g.Go(func() error {
			if err := p.store.DeleteByFile(gctx, p.Collection, rel); err != nil {
				p.log.Warn("pre-reprocess delete failed", "path", rel, "error", err)
			}

			abs := filepath.Join(p.ProjectRoot, rel)
			blocks, err := p.extract(rel, abs)
			if err != nil {
				p.log.Warn("extraction failed", "path", rel, "error", err)
				return nil
			}

			var items []chunkedText
			for _, b := range blocks {
				pieces := chunk.Split(b.Code)
				for _, cb := range chunk.ToChunkedBlocks(b, pieces) {
					items = append(items, chunkedText{block: cb.CodeBlock, text: chunk.PrepareText(cb.CodeBlock)})
				}
			}
			perFile[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("indexer: extract: %w", err)
	}

	var pending []chunkedText
	for _, items := range perFile {
		pending = append(pending, items...)
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now()
	recs := make([]*models.VectorRecord, len(pending))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(NumWorkers)
	for i, item := range pending {
		i, item := i, item
		eg.Go(func() error {
			callCtx, cancel := context.WithTimeout(egctx, p.callTimeout)
			defer cancel()
			vec, err := p.embedder.Embed(callCtx, item.text)
			if err != nil {
				p.log.Warn("embedding failed", "block_id", item.block.ID, "error", err)
				return nil
			}
			rec := vectorstore.NewRecord(item.block, vec, now)
			recs[i] = &rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("indexer: embed: %w", err)
	}

	records := make([]models.VectorRecord, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			records = append(records, *r)
		}
	}
	if len(records) == 0 {
		return nil
	}
	if err := p.store.Upsert(ctx, p.Collection, records); err != nil {
		return fmt.Errorf("indexer: upsert: %w", err)
	}
	return nil
}

func (p *Pipeline) extract(relPath, absPath string) ([]models.CodeBlock, error) {
	lang, ok := parser.LanguageForExt(filepath.Ext(absPath))
	if !ok {
		return nil, nil
	}
	ext, ok := parser.ForLanguage(lang)
	if !ok {
		return nil, nil
	}
	src, err := os.ReadFile(absPath)
	if err != nil {
		return nil, nil
	}
	return ext.Extract(relPath, src)
}

func (p *Pipeline) writeMetadata(totalFiles int) error {
	now := time.Now()
	meta := Metadata{
		LastIndexTime:     &now,
		TotalFilesIndexed: totalFiles,
		MerkleRootHash:    p.currentRootHash(),
	}

	if err := os.MkdirAll(p.IndexDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	dest := filepath.Join(p.IndexDir, metadataFileName)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func (p *Pipeline) currentRootHash() string {
	data, err := os.ReadFile(filepath.Join(p.IndexDir, "merkle_tree.json"))
	if err != nil {
		return ""
	}
	var doc struct {
		RootHash string `json:"root_hash"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	return doc.RootHash
}

// ReadMetadata loads the persisted metadata.json for status reporting.
func ReadMetadata(indexDir string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, metadataFileName))
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// ReadFileHashes loads the path->hash mapping recovered from the persisted
// Merkle tree, for status reporting.
func ReadFileHashes(indexDir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, "merkle_tree.json"))
	if err != nil {
		return nil, err
	}
	var doc struct {
		Tree json.RawMessage `json:"tree"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Tree) == 0 || string(doc.Tree) == "null" {
		return map[string]string{}, nil
	}
	var root merkle.Node
	if err := json.Unmarshal(doc.Tree, &root); err != nil {
		return nil, err
	}
	return merkle.Leaves(&root), nil
}
