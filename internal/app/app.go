package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	ingestfeat "fleetrag/features/ingest"
	"fleetrag/features/query"
	"fleetrag/features/stats"
	"fleetrag/internal/adapter/pdf"
	"fleetrag/internal/chunk"
	"fleetrag/internal/config"
	"fleetrag/internal/generation"
	"fleetrag/internal/ingest"
	"fleetrag/internal/middleware"
	"fleetrag/internal/pipeline"
	"fleetrag/internal/retrieval"
	"fleetrag/internal/worker"
)

// VectorIndex is everything the app needs from an index backend.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]retrieval.Hit, error)
	Rebuild(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error
	Count(ctx context.Context) (int, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

type GenerativeModel interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler        http.Handler
	IngestService  *ingestfeat.Service
	IngestConsumer *worker.IngestConsumer
	port           int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	index VectorIndex,
	embedder Embedder,
	model GenerativeModel,
	taskPub TaskPublisher,
	logger *slog.Logger,
) (*App, error) {

	// Feature: Ingest
	runRepo := ingestfeat.NewPostgresRepo(db)
	ingestService := ingestfeat.NewService(runRepo, taskPub)
	ingestHandler := ingestfeat.NewHandler(ingestService, cfg.InvoiceDir)

	// Feature: Query
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	retrievalService := retrieval.NewService(embedder, index, queryLogger)
	generationService := generation.NewService(model)
	ragPipeline := pipeline.New(retrievalService, generationService)
	queryHandler := query.NewHandler(ragPipeline, cfg.RetrievalTopK)

	// Feature: Stats
	statsHandler := stats.NewHandler(runRepo, index)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /runs", middleware.CorrelationID(enableCORS(ingestHandler.Create)))
	mux.Handle("GET /runs", middleware.CorrelationID(enableCORS(ingestHandler.List)))
	mux.Handle("GET /runs/{id}", middleware.CorrelationID(enableCORS(ingestHandler.Get)))

	mux.Handle("POST /query", middleware.CorrelationID(enableCORS(queryHandler.Query)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.Get)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Worker (Ingest Consumer) Setup
	extractor := pdf.NewExtractor()
	ingestor := ingest.NewService(extractor, embedder, index)
	ingestConsumer := worker.NewIngestConsumer(ingestor, runRepo)

	return &App{
		Handler:        mux,
		IngestService:  ingestService,
		IngestConsumer: ingestConsumer,
		port:           cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
