package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/chatbot-web/internal/api"
	"github.com/dom/chatbot-web/internal/archive"
	"github.com/dom/chatbot-web/internal/completion"
	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/idempotency"
	"github.com/dom/chatbot-web/internal/repository"
	repoPostgres "github.com/dom/chatbot-web/internal/repository/postgres"
	"github.com/dom/chatbot-web/internal/service"
	"github.com/dom/chatbot-web/internal/websocket"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_chatbot"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"messages", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// NewSQLiteDB opens a private in-memory SQLite database with the schema applied.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:              "0", // Random port
		Environment:       "test",
		AllowedOrigins:    []string{"http://localhost:5173"},
		StoreDriver:       config.StoreDriverSQLite,
		IdempotencyTTL:    time.Hour,
		JWTSecret:         "test-jwt-secret-key-for-testing-only",
		CookieSecret:      "test-cookie-secret-for-testing-only",
		CookieName:        "auth_token",
		SessionTTL:        7 * 24 * time.Hour,
		OpenAIAPIKey:      "test-openai-key",
		OpenAIModel:       "gpt-test",
		OpenAITemperature: -1,
		CompletionTimeout: 5 * time.Second,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server      *httptest.Server
	DB          *gorm.DB
	Repos       *repository.Repositories
	Services    *service.Services
	Hub         *websocket.Hub
	Config      *config.Config
	Completion  *FakeCompletionServer
	Idempotency idempotency.Store
	Archiver    archive.Archiver
}

type TestServerOption func(*TestServer)

// WithIdempotencyStore replaces the default no-op idempotency store
func WithIdempotencyStore(store idempotency.Store) TestServerOption {
	return func(ts *TestServer) {
		ts.Idempotency = store
	}
}

// WithArchiver replaces the default no-op archiver
func WithArchiver(archiver archive.Archiver) TestServerOption {
	return func(ts *TestServer) {
		ts.Archiver = archiver
	}
}

// WithConfig lets a test adjust the configuration before wiring
func WithConfig(fn func(cfg *config.Config)) TestServerOption {
	return func(ts *TestServer) {
		fn(ts.Config)
	}
}

// NewTestServer creates a complete test server backed by in-memory SQLite and
// a fake completion API.
func NewTestServer(t *testing.T, opts ...TestServerOption) *TestServer {
	t.Helper()

	ts := &TestServer{
		DB:          NewSQLiteDB(t),
		Config:      TestConfig(),
		Completion:  NewFakeCompletionServer(t),
		Idempotency: idempotency.NewNoopStore(),
		Archiver:    archive.NewNoopArchiver(),
	}
	for _, opt := range opts {
		opt(ts)
	}
	ts.Config.OpenAIBaseURL = ts.Completion.URL()

	ts.Repos = repoPostgres.NewRepositories(ts.DB)
	ts.Hub = websocket.NewHub(ts.Repos.Chat)
	go ts.Hub.Run()

	completer := completion.NewOpenAIClient(completion.OptionsFromConfig(ts.Config))
	ts.Services = service.NewServices(ts.Repos, completer, ts.Archiver, ts.Hub, ts.Config)
	router := api.NewRouter(ts.Services, ts.Hub, ts.Idempotency, ts.Config)

	ts.Server = httptest.NewServer(router)

	t.Cleanup(func() {
		ts.Server.Close()
		ts.Hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the chat websocket URL
func (ts *TestServer) WebSocketURL() string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/chat/ws", wsURL)
}
