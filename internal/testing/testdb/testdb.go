package testdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/forgo/saga/onboarding/internal/database"
)

// TestDB is an isolated SurrealDB namespace with the onboarding schema
// applied.
type TestDB struct {
	DB        database.Database
	Namespace string
	Database  string
	t         *testing.T
}

var (
	// counterMu protects the namespace counter
	counterMu sync.Mutex
	counter   int64
)

// getTestConfig returns database config from environment or defaults
func getTestConfig() database.Config {
	return database.Config{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "8000"),
		User:     envOr("TEST_DB_USER", "root"),
		Password: envOr("TEST_DB_PASSWORD", "root"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// uniqueNamespace generates a unique namespace for test isolation
func uniqueNamespace() string {
	counterMu.Lock()
	defer counterMu.Unlock()
	counter++
	return fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), counter)
}

// New connects to the test database in a fresh namespace and applies the
// schema. The test is skipped when no database is reachable, so unit runs
// work without a SurrealDB instance. Cleanup is registered with t.
func New(t *testing.T) *TestDB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := getTestConfig()
	cfg.Namespace = uniqueNamespace()
	cfg.Database = "test"

	db := database.NewSurrealDB(cfg)
	if err := db.Connect(ctx); err != nil {
		t.Skipf("testdb: SurrealDB not available at %s:%s: %v", cfg.Host, cfg.Port, err)
	}

	tdb := &TestDB{
		DB:        db,
		Namespace: cfg.Namespace,
		Database:  cfg.Database,
		t:         t,
	}

	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("testdb: %v", err)
	}

	t.Cleanup(tdb.Close)
	return tdb
}

// Close removes the test namespace and closes the connection
func (tdb *TestDB) Close() {
	if tdb.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := fmt.Sprintf("REMOVE NAMESPACE %s", tdb.Namespace)
	_ = tdb.DB.Execute(ctx, query, nil) // Ignore errors on cleanup

	_ = tdb.DB.Close()
	tdb.DB = nil
}

// Ctx returns a context bounded by the test's lifetime
func (tdb *TestDB) Ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tdb.t.Cleanup(cancel)
	return ctx
}

// MustExec executes a query and fails the test on error.
func (tdb *TestDB) MustExec(query string, vars map[string]interface{}) {
	tdb.t.Helper()
	if err := tdb.DB.Execute(tdb.Ctx(), query, vars); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nQuery: %s", err, query)
	}
}

// MustQuery executes a query and returns results, failing the test on error.
func (tdb *TestDB) MustQuery(query string, vars map[string]interface{}) []interface{} {
	tdb.t.Helper()
	results, err := tdb.DB.Query(tdb.Ctx(), query, vars)
	if err != nil {
		tdb.t.Fatalf("testdb: query failed: %v\nQuery: %s", err, query)
	}
	return results
}
