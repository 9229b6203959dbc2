// Package retrieval embeds queries and ranks nearest chunks from the index.
package retrieval

import (
	"context"
	"time"

	"fleetrag/internal/chunk"
)

// Hit is a raw index result: a stored chunk and its cosine distance from the
// query vector.
type Hit struct {
	Chunk    chunk.Chunk
	Distance float64
}

// RetrievedChunk annotates a chunk with its normalized similarity and
// 1-based rank. Constructed per query, never persisted.
type RetrievedChunk struct {
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float64           `json:"similarity"`
	Rank       int               `json:"rank"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

type Service struct {
	embedder Embedder
	index    Index
	logger   *QueryLogger
}

func NewService(e Embedder, idx Index, l *QueryLogger) *Service {
	return &Service{embedder: e, index: idx, logger: l}
}

// Retrieve embeds the query, asks the index for the k nearest chunks, and
// maps distances to similarities and ranks. The index's ordering is kept
// as-is: no re-ranking, no filtering, and no deduplication by invoice, since
// a single invoice legitimately contributes multiple chunks. An empty or
// uninitialized index yields an empty slice, not an error.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	start := time.Now()
	var results []RetrievedChunk
	var err error

	defer func() {
		if s.logger != nil && err == nil {
			s.logger.Log(QueryLogEntry{
				Query:      query,
				TopK:       k,
				NumResults: len(results),
				Duration:   time.Since(start),
			})
		}
	}()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Query(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	results = make([]RetrievedChunk, 0, len(hits))
	for i, h := range hits {
		results = append(results, RetrievedChunk{
			Text:       h.Chunk.Text,
			Metadata:   h.Chunk.Metadata,
			Similarity: SimilarityFromDistance(h.Distance),
			Rank:       i + 1,
		})
	}
	return results, nil
}
