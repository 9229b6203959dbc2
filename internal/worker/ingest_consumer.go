package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"fleetrag/internal/middleware"
)

type IngestConsumer struct {
	ingestor Ingestor
	runs     RunStore
	timeout  time.Duration
}

func NewIngestConsumer(ingestor Ingestor, runs RunStore) *IngestConsumer {
	return &IngestConsumer{
		ingestor: ingestor,
		runs:     runs,
		timeout:  10 * time.Minute,
	}
}

func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IngestTaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	if payload.RunID == "" {
		slog.ErrorContext(ctx, "poison pill: missing run_id")
		return nil
	}

	if err := h.runs.MarkProcessing(ctx, payload.RunID); err != nil {
		slog.ErrorContext(ctx, "failed to mark run processing", "error", err, "run_id", payload.RunID)
		return err // Retry
	}

	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	summary, err := h.ingestor.Run(runCtx, payload.InputDir, payload.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "ingestion run failed", "error", err, "run_id", payload.RunID, "input_dir", payload.InputDir)
		if ferr := h.runs.Fail(ctx, payload.RunID, err.Error()); ferr != nil {
			slog.ErrorContext(ctx, "failed to mark run failed", "error", ferr, "run_id", payload.RunID)
		}
		// Rebuilds replace the whole index, so a retry is safe
		return err
	}

	if err := h.runs.Complete(ctx, payload.RunID, summary.Documents, summary.Indexed, summary.Skipped, summary.Chunks); err != nil {
		slog.ErrorContext(ctx, "failed to mark run completed", "error", err, "run_id", payload.RunID)
		return err // Retry
	}

	slog.InfoContext(ctx, "ingestion run completed",
		"run_id", payload.RunID,
		"documents", summary.Documents,
		"indexed", summary.Indexed,
		"skipped", summary.Skipped,
		"chunks", summary.Chunks)
	return nil
}
