package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"codebase-indexer/internal/config"
)

// DefaultCacheSize bounds how many distinct embedding texts a CachedClient
// keeps warm; the cache lives as long as the client, across passes.
const DefaultCacheSize = 2000

// Embedder is the subset of Client that CachedClient wraps, so tests can
// substitute a fake without a live OpenAI-compatible endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CachedClient adds an LRU cache in front of an Embedder so that identical
// chunk text (repeated docstrings, boilerplate constructors) is sent to the
// embedding endpoint only once while it stays in the cache; a text evicted
// by the LRU bound is embedded again on its next use.
type CachedClient struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
	log   *slog.Logger
}

// NewCachedClient wraps inner with an LRU cache sized by EMBED_CACHE_SIZE,
// falling back to DefaultCacheSize.
func NewCachedClient(inner Embedder, log *slog.Logger) *CachedClient {
	size := config.GetInt(DefaultCacheSize, "EMBED_CACHE_SIZE")
	cache, _ := lru.New[string, []float32](size)
	return &CachedClient{inner: inner, cache: cache, log: log}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text if present, otherwise computes
// and caches it.
func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch checks the cache for each text individually, then embeds only
// the misses in one call, preserving input order in the result.
func (c *CachedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(cacheKey(text)); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = vecs[j]
		c.cache.Add(cacheKey(texts[idx]), vecs[j])
	}
	return results, nil
}
