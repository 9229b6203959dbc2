// Package pipeline composes retrieval and generation into one query call.
package pipeline

import (
	"context"

	"fleetrag/internal/retrieval"
)

// Result is the full outcome of one query: the generated answer, the ranked
// chunks it was grounded on, and the invoices they came from. NumSources is
// the retrieved-chunk count.
type Result struct {
	Query           string                     `json:"query"`
	Answer          string                     `json:"answer"`
	RetrievedChunks []retrieval.RetrievedChunk `json:"retrieved_chunks"`
	SourceInvoices  []string                   `json:"source_invoices"`
	NumSources      int                        `json:"num_sources"`
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.RetrievedChunk, error)
}

type Generator interface {
	Generate(ctx context.Context, query string, retrieved []retrieval.RetrievedChunk) (string, []string, error)
}

type Pipeline struct {
	retriever Retriever
	generator Generator
}

func New(r Retriever, g Generator) *Pipeline {
	return &Pipeline{retriever: r, generator: g}
}

// Run executes retrieve-then-generate. Retrieval fully completes before
// generation starts; there is no streaming overlap. A grounding refusal from
// the model ("I cannot find this information...") is a successful answer,
// not an error.
func (p *Pipeline) Run(ctx context.Context, query string, k int) (*Result, error) {
	retrieved, err := p.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	answer, sources, err := p.generator.Generate(ctx, query, retrieved)
	if err != nil {
		return nil, err
	}

	return &Result{
		Query:           query,
		Answer:          answer,
		RetrievedChunks: retrieved,
		SourceInvoices:  sources,
		NumSources:      len(retrieved),
	}, nil
}
