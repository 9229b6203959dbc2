// Package ingest exposes ingestion runs: one row per batch rebuild of the
// invoice index, carrying the run's lifecycle and quality counters.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fleetrag/internal/config"
	"fleetrag/internal/middleware"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Run struct {
	ID          string    `json:"id"`
	InputDir    string    `json:"input_dir"`
	SampleLimit int       `json:"sample_limit"`
	Status      string    `json:"status"`
	Documents   int       `json:"documents"`
	Indexed     int       `json:"indexed"`
	Skipped     int       `json:"skipped"`
	Chunks      int       `json:"chunks"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repository interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context) ([]Run, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, documents, indexed, skipped, chunks int) error
	Fail(ctx context.Context, id, message string) error
	Count(ctx context.Context) (int, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Create registers a queued run and hands it to the worker over NSQ. The
// HTTP path never runs ingestion inline; a rebuild over a large corpus is
// not request-scoped work.
func (s *Service) Create(ctx context.Context, inputDir string, limit int) (*Run, error) {
	run := &Run{
		InputDir:    inputDir,
		SampleLimit: limit,
		Status:      StatusQueued,
	}
	if err := s.repo.Save(ctx, run); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"run_id":         run.ID,
		"input_dir":      run.InputDir,
		"limit":          run.SampleLimit,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicIngestTask, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest.task event", "error", err, "run_id", run.ID)
		if ferr := s.repo.Fail(ctx, run.ID, fmt.Sprintf("publish failed: %v", err)); ferr != nil {
			slog.ErrorContext(ctx, "failed to mark run failed", "error", ferr, "run_id", run.ID)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "published ingest.task event", "run_id", run.ID, "input_dir", run.InputDir)
	return run, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Run, error) {
	return s.repo.List(ctx)
}
