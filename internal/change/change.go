// Package change detects what changed in a project tree since the last
// indexing pass by comparing a freshly built Merkle tree against the one
// persisted on disk.
//
// Grounded on code_change_tracker.py's CodeChangeTracker.detect_changes,
// reworked around internal/merkle's tagged-union Node instead of a Python
// dataclass tree.
package change

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"codebase-indexer/internal/hasher"
	"codebase-indexer/internal/merkle"
	"codebase-indexer/internal/scanner"
)

// Set is a set of relative paths.
type Set map[string]struct{}

// Result classifies every path known to the detector into exactly one of
// Added, Modified, Deleted, Unchanged.
type Result struct {
	Added     Set
	Modified  Set
	Deleted   Set
	Unchanged Set
	// Current is the fresh path->hash mapping computed this pass, handed
	// back so callers don't need to rescan to persist it.
	Current map[string]string
}

// persistedTree is the on-disk shape of merkle_tree.json.
type persistedTree struct {
	RootHash  string       `json:"root_hash"`
	Tree      *merkle.Node `json:"tree"`
	Timestamp time.Time    `json:"timestamp"`
}

const treeFileName = "merkle_tree.json"

// Detector runs change detection for one project root against one index
// directory.
type Detector struct {
	ProjectRoot string
	IndexDir    string
}

func New(projectRoot, indexDir string) *Detector {
	return &Detector{ProjectRoot: projectRoot, IndexDir: indexDir}
}

func newSet() Set { return make(Set) }

func (s Set) add(p string) { s[p] = struct{}{} }

// Keys returns the sorted relative paths in a Set.
func (s Set) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Detect runs the six-step algorithm from the change-detection design: scan
// and hash the current tree, load the prior persisted tree, fast-path on
// equal root hashes, otherwise diff leaf sets, then persist the fresh tree.
func (d *Detector) Detect() (*Result, error) {
	files, err := scanner.Walk(d.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("change: scan project root: %w", err)
	}

	current := make(map[string]string, len(files))
	for _, f := range files {
		h, err := hasher.HashFile(f.AbsolutePath)
		if err != nil {
			// FileHasher never raises to the pipeline; an unreadable file
			// simply contributes no hash and is absent from `current`.
			continue
		}
		if h == "" {
			continue
		}
		current[f.RelativePath] = h
	}

	prior := d.loadPrior()

	newRoot := merkle.Build(current)
	newRootHash := merkle.RootHash(newRoot)

	if prior != nil && prior.RootHash != "" && prior.RootHash == newRootHash {
		unchanged := newSet()
		for p := range current {
			unchanged.add(p)
		}
		return &Result{
			Added:     newSet(),
			Modified:  newSet(),
			Deleted:   newSet(),
			Unchanged: unchanged,
			Current:   current,
		}, nil
	}

	priorLeaves := map[string]string{}
	if prior != nil {
		priorLeaves = merkle.Leaves(prior.Tree)
	}

	result := &Result{
		Added:     newSet(),
		Modified:  newSet(),
		Deleted:   newSet(),
		Unchanged: newSet(),
		Current:   current,
	}

	for p, h := range current {
		ph, ok := priorLeaves[p]
		switch {
		case !ok:
			result.Added.add(p)
		case ph != h:
			result.Modified.add(p)
		default:
			result.Unchanged.add(p)
		}
	}
	for p := range priorLeaves {
		if _, ok := current[p]; !ok {
			result.Deleted.add(p)
		}
	}

	if err := d.persist(newRoot, newRootHash); err != nil {
		return nil, fmt.Errorf("change: persist tree: %w", err)
	}

	return result, nil
}

// loadPrior reads merkle_tree.json, returning nil if absent or unreadable
// (an unreadable prior tree is treated as absent per the detector's
// failure semantics).
func (d *Detector) loadPrior() *persistedTree {
	data, err := os.ReadFile(filepath.Join(d.IndexDir, treeFileName))
	if err != nil {
		return nil
	}
	var pt persistedTree
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil
	}
	return &pt
}

// persist writes the fresh tree via write-then-rename so a crash mid-write
// never corrupts the previously persisted tree.
func (d *Detector) persist(root *merkle.Node, rootHash string) error {
	if err := os.MkdirAll(d.IndexDir, 0o755); err != nil {
		return err
	}

	pt := persistedTree{RootHash: rootHash, Tree: root, Timestamp: time.Now()}
	data, err := json.MarshalIndent(pt, "", "  ")
	if err != nil {
		return err
	}

	dest := filepath.Join(d.IndexDir, treeFileName)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

// RebuildAndPersist rebuilds the Merkle tree over the given mapping and
// persists it, used by the pipeline after it mutates the hash mapping
// (e.g. removing deleted paths) outside of a fresh Detect call.
func (d *Detector) RebuildAndPersist(hashes map[string]string) error {
	root := merkle.Build(hashes)
	return d.persist(root, merkle.RootHash(root))
}
