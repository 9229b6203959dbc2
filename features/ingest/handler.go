package ingest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fleetrag/internal/middleware"
)

type Handler struct {
	service    *Service
	defaultDir string
}

func NewHandler(service *Service, defaultDir string) *Handler {
	return &Handler{service: service, defaultDir: defaultDir}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputDir string `json:"input_dir"`
		Limit    int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	if req.InputDir == "" {
		req.InputDir = h.defaultDir
	}
	if req.Limit < 0 {
		h.writeError(r, w, "VALIDATION_ERROR", "limit must not be negative", http.StatusBadRequest)
		return
	}

	run, err := h.service.Create(r.Context(), req.InputDir, req.Limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create ingestion run", "error", err)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": run}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list ingestion runs", "error", err)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []Run{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": runs}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(r, w, "VALIDATION_ERROR", "id is required", http.StatusBadRequest)
		return
	}

	run, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r, w, "NOT_FOUND", "run not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "failed to get ingestion run", "error", err, "id", id)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": run}); err != nil {
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
