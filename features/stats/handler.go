package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"fleetrag/internal/middleware"
)

// RunCounter reports how many ingestion runs have been recorded.
type RunCounter interface {
	Count(ctx context.Context) (int, error)
}

// ChunkCounter reports how many chunks the vector index currently holds.
type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	runs   RunCounter
	chunks ChunkCounter
}

func NewHandler(runs RunCounter, chunks ChunkCounter) *Handler {
	return &Handler{runs: runs, chunks: chunks}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	runCount, err := h.runs.Count(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to count ingestion runs", "error", err)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	chunkCount, err := h.chunks.Count(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to count indexed chunks", "error", err)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]int{
			"ingestion_runs": runCount,
			"indexed_chunks": chunkCount,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
