package worker

import (
	"context"

	"fleetrag/internal/ingest"
)

type Ingestor interface {
	Run(ctx context.Context, dir string, limit int) (*ingest.Summary, error)
}

type RunStore interface {
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, documents, indexed, skipped, chunks int) error
	Fail(ctx context.Context, id, message string) error
}
