// Package gemini adapts the Gemini API to the embedding and generation
// contracts. Clients are constructed once at bootstrap and injected; the
// underlying model is stateless after construction, so a single client is
// safe for concurrent use.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrMissingAPIKey is a fatal configuration error: without a credential no
// model call can be attempted, and failing loudly beats silent degradation.
var ErrMissingAPIKey = errors.New("gemini api key not configured")

type Embedder struct {
	client *genai.Client
	model  string
}

func NewEmbedder(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: model}, nil
}

// Embed maps text to a fixed-length vector. The empty string is valid input
// and yields a valid, if low-information, vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("empty embedding received")
	}
	return res.Embedding.Values, nil
}

// EmbedMany embeds a batch of texts in one call, preserving order. Every
// returned vector has the same dimensionality as Embed's output; the index
// relies on that consistency between ingest and query time.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch = batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		slog.ErrorContext(ctx, "batch embedding failed", "error", err, "texts", len(texts))
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("empty embedding received at position %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
