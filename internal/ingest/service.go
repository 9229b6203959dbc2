// Package ingest runs the batch pipeline: documents in, rebuilt index out.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fleetrag/internal/chunk"
	"fleetrag/internal/invoice"
)

// Summary reports one ingestion run. Skipped counts parse-misses; the miss
// rate is a quality metric to report, not an error condition to alarm on.
type Summary struct {
	Documents int `json:"documents"`
	Indexed   int `json:"indexed"`
	Skipped   int `json:"skipped"`
	Chunks    int `json:"chunks"`
}

type TextExtractor interface {
	Extract(path string) (string, error)
}

type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

type Indexer interface {
	Rebuild(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error
}

type Service struct {
	extractor TextExtractor
	embedder  Embedder
	indexer   Indexer
}

func NewService(e TextExtractor, em Embedder, idx Indexer) *Service {
	return &Service{extractor: e, embedder: em, indexer: idx}
}

// Run ingests every invoice document under dir (non-recursive, .pdf/.txt),
// in name order. limit > 0 caps the number of documents taken, for sampling.
func (s *Service) Run(ctx context.Context, dir string, limit int) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read invoice dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pdf", ".txt":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	return s.IngestFiles(ctx, paths)
}

// IngestFiles extracts, parses and chunks each document, then embeds all
// chunks and rebuilds the index in one destructive replace. A document that
// fails extraction or parsing is skipped and counted, never fatal: a run
// over a thousand invoices must not abort on the first malformed one.
func (s *Service) IngestFiles(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{Documents: len(paths)}
	var chunks []chunk.Chunk

	for _, path := range paths {
		name := filepath.Base(path)

		text, err := s.extractor.Extract(path)
		if err != nil {
			// Extraction failure degrades to "no text".
			slog.WarnContext(ctx, "extraction failed", "document", name, "error", err)
			text = ""
		}

		rec, err := invoice.Parse(text, name)
		if err != nil {
			if errors.Is(err, invoice.ErrNoText) || errors.Is(err, invoice.ErrNoInvoiceID) {
				slog.WarnContext(ctx, "document skipped", "document", name, "reason", err)
				summary.Skipped++
				continue
			}
			return nil, err
		}

		docChunks := chunk.Build(*rec)
		if len(docChunks) == 0 {
			// Parsed but nothing retrievable; excluded from the index.
			slog.InfoContext(ctx, "document has no repair entries", "document", name, "invoice_id", rec.ID)
			summary.Skipped++
			continue
		}

		chunks = append(chunks, docChunks...)
		summary.Indexed++
	}
	summary.Chunks = len(chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	if err := s.indexer.Rebuild(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	slog.InfoContext(ctx, "ingestion complete",
		"documents", summary.Documents,
		"indexed", summary.Indexed,
		"skipped", summary.Skipped,
		"chunks", summary.Chunks)
	return summary, nil
}
