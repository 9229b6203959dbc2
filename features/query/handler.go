package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"fleetrag/internal/middleware"
	"fleetrag/internal/pipeline"
)

// Answerer runs the full retrieval and generation flow for one question.
type Answerer interface {
	Run(ctx context.Context, query string, k int) (*pipeline.Result, error)
}

type Handler struct {
	pipeline Answerer
	defaultK int
}

func NewHandler(p Answerer, defaultK int) *Handler {
	return &Handler{pipeline: p, defaultK: defaultK}
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	if req.Query == "" {
		h.writeError(r, w, "VALIDATION_ERROR", "query is required", http.StatusBadRequest)
		return
	}
	if req.K < 0 {
		h.writeError(r, w, "VALIDATION_ERROR", "k must not be negative", http.StatusBadRequest)
		return
	}
	if req.K == 0 {
		req.K = h.defaultK
	}

	result, err := h.pipeline.Run(r.Context(), req.Query, req.K)
	if err != nil {
		slog.ErrorContext(r.Context(), "query pipeline failed", "error", err)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": result}); err != nil {
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
