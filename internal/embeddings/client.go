// Package embeddings wraps an OpenAI-compatible embedding endpoint.
//
// Grounded on the teacher's internal/embeddings/client.go, with env var
// naming aligned to OPENAI_MODEL_NAME and stderr prints replaced by the
// shared slog-based logger.
package embeddings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"codebase-indexer/internal/config"
	"codebase-indexer/internal/logging"
)

// Client produces embeddings for indexable text.
type Client struct {
	client *openai.Client
	model  openai.EmbeddingModel
	log    *slog.Logger
}

// NewClient builds a Client from OPENAI_API_KEY, OPENAI_BASE_URL, and
// OPENAI_MODEL_NAME. A missing API key is logged but not fatal: embedding
// calls will simply fail once attempted.
func NewClient(log *slog.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}

	apiKey := config.Get("OPENAI_API_KEY")
	if apiKey == "" {
		log.Warn("OPENAI_API_KEY is not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL := config.Get("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
		log.Info("using custom embedding endpoint", "base_url", baseURL)
	}

	model := openai.SmallEmbedding3
	if modelName := config.Get("OPENAI_MODEL_NAME"); modelName != "" {
		model = openai.EmbeddingModel(modelName)
		log.Info("using embedding model", "model", modelName)
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log,
	}
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings: no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedBatch returns one embedding vector per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: embed batch: %w", err)
	}
	results := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < len(results) {
			results[data.Index] = data.Embedding
		}
	}
	return results, nil
}
