package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"fleetrag"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"fleetrag"`

	// Index backend: "sqlite" keeps the index in a local directory,
	// "weaviate" uses a remote instance.
	IndexBackend    string `envconfig:"INDEX_BACKEND" default:"sqlite"`
	IndexDir        string `envconfig:"INDEX_DIR" default:"data/index"`
	IndexCollection string `envconfig:"INDEX_COLLECTION" default:"invoices"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gemini-2.0-flash"`
	EmbeddingDim    int    `envconfig:"EMBEDDING_DIM" default:"768"`

	InvoiceDir    string `envconfig:"INVOICE_DIR" default:"data/invoices"`
	RetrievalTopK int    `envconfig:"RETRIEVAL_TOP_K" default:"50"`

	EnableAPI          bool   `envconfig:"ENABLE_API" default:"true"`
	EnableIngestWorker bool   `envconfig:"ENABLE_INGEST_WORKER" default:"true"`
	MigrationPath      string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env; ignore errors since env vars may come from the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	// Both embedding and generation need this key, so fail at startup.
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	if c.IndexBackend != "sqlite" && c.IndexBackend != "weaviate" {
		return fmt.Errorf("%w: INDEX_BACKEND must be sqlite or weaviate", ErrMissingRequired)
	}
	return nil
}
