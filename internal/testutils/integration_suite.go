package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fleetrag/internal/config"
)

type IntegrationSuite struct {
	T   *testing.T
	DB  *sql.DB
	NSQ *nsq.Producer

	dbHost  string
	dbPort  int
	nsqAddr string

	// Containers
	pgContainer  *postgres.PostgresContainer
	nsqContainer testcontainers.Container
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	// 1. Postgres
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fleetrag_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(s.T, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)
	s.dbHost = host
	s.dbPort = port.Int()

	// Run Migrations
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	migrationPath := fmt.Sprintf("file://%s/../../migrations", basepath)

	m, err := migrate.New(migrationPath, connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())

	// 2. NSQ
	nsqReq := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: nsqReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = nsqC

	nsqHost, err := nsqC.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := nsqC.MappedPort(ctx, "4150")
	require.NoError(s.T, err)
	s.nsqAddr = net.JoinHostPort(nsqHost, nsqPort.Port())

	nsqCfg := nsq.NewConfig()
	s.NSQ, err = nsq.NewProducer(s.nsqAddr, nsqCfg)
	require.NoError(s.T, err)
}

// GetAppConfig returns a config wired to the suite's containers, with the
// sqlite index backend rooted in a per-test temp dir.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	indexDir := s.T.TempDir()

	return &config.Config{
		DBHost:                     s.dbHost,
		DBPort:                     s.dbPort,
		DBUser:                     "test",
		DBPass:                     "test",
		DBName:                     "fleetrag_test",
		IndexBackend:               "sqlite",
		IndexDir:                   indexDir,
		IndexCollection:            "invoices",
		NSQDHost:                   s.nsqAddr,
		NSQLookupd:                 "localhost:4161",
		NSQDHTTP:                   "localhost:4151",
		GeminiAPIKey:               "test-key",
		EmbeddingModel:             "gemini-embedding-001",
		GenerationModel:            "gemini-2.0-flash",
		EmbeddingDim:               768,
		InvoiceDir:                 s.T.TempDir(),
		RetrievalTopK:              50,
		EnableAPI:                  true,
		EnableIngestWorker:         false,
		MigrationPath:              "file://migrations",
		ServerPort:                 8081,
		QueryLogPath:               filepath.Join(s.T.TempDir(), "query.log"),
		BootstrapRetryAttempts:     3,
		BootstrapRetryDelaySeconds: 1,
	}
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}
