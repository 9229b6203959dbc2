package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"fleetrag/internal/adapter/gemini"
	"fleetrag/internal/app"
	"fleetrag/internal/config"
	"fleetrag/internal/logger"
)

func main() {
	// Initialize structured logger
	base := slog.NewJSONHandler(os.Stdout, nil)
	log := slog.New(logger.NewContextHandler(base))
	slog.SetDefault(log)

	// Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("app exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	// Gemini Adapters
	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return err
	}
	defer embedder.Close()

	generator, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GenerationModel)
	if err != nil {
		return err
	}
	defer generator.Close()

	a, err := app.New(cfg, deps.DB, deps.Index, embedder, generator, deps.NSQProducer, log)
	if err != nil {
		return err
	}

	// Worker (Ingest Consumer)
	if cfg.EnableIngestWorker {
		nsqCfg := nsq.NewConfig()
		consumer, err := nsq.NewConsumer(config.TopicIngestTask, config.ChannelBackend, nsqCfg)
		if err != nil {
			slog.Error("failed to create NSQ consumer for ingest tasks", "error", err)
		} else {
			consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
				return a.IngestConsumer.HandleMessage(m)
			}))
			if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
				slog.Error("failed to connect to NSQLookupd", "error", err)
			} else {
				slog.Info("NSQ ingest consumer connected", "topic", config.TopicIngestTask, "channel", config.ChannelBackend)
			}
			defer consumer.Stop()
		}
	}

	if !cfg.EnableAPI {
		slog.Info("API disabled, running worker only")
		<-ctx.Done()
		return nil
	}

	return a.Run(ctx)
}
