package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// SurrealDB implements Database over a websocket connection
type SurrealDB struct {
	db     *surrealdb.DB
	config Config
}

// NewSurrealDB creates an unconnected SurrealDB client
func NewSurrealDB(cfg Config) *SurrealDB {
	return &SurrealDB{config: cfg}
}

// Connect dials the server, signs in and selects the namespace/database
func (s *SurrealDB) Connect(ctx context.Context) error {
	endpoint := fmt.Sprintf("ws://%s:%s", s.config.Host, s.config.Port)

	db, err := surrealdb.FromEndpointURLString(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if _, err = db.SignIn(ctx, &surrealdb.Auth{
		Username: s.config.User,
		Password: s.config.Password,
	}); err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("%w: signin failed: %v", ErrConnection, err)
	}

	if err := db.Use(ctx, s.config.Namespace, s.config.Database); err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("%w: use failed: %v", ErrConnection, err)
	}

	s.db = db
	return nil
}

// Close closes the connection
func (s *SurrealDB) Close() error {
	if s.db != nil {
		return s.db.Close(context.Background())
	}
	return nil
}

// Ping checks the connection by asking for the server version
func (s *SurrealDB) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrConnection
	}
	if _, err := s.db.Version(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Query runs the statements and returns one {status, result} map per
// statement. Any statement that did not succeed fails the whole call.
func (s *SurrealDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	if s.db == nil {
		return nil, ErrConnection
	}

	results, err := surrealdb.Query[interface{}](ctx, s.db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if results == nil {
		return nil, nil
	}

	output := make([]interface{}, 0, len(*results))
	for _, r := range *results {
		if r.Status != "OK" {
			if r.Error != nil {
				return nil, fmt.Errorf("%w: %s", ErrQuery, r.Error.Message)
			}
			return nil, ErrQuery
		}
		output = append(output, map[string]interface{}{
			"status": r.Status,
			"result": r.Result,
		})
	}
	return output, nil
}

// QueryOne returns the first record of the first statement, or ErrNotFound
func (s *SurrealDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	results, err := s.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return FirstRecord(results)
}

// Execute runs a mutation
func (s *SurrealDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := s.Query(ctx, query, vars)
	return err
}

// BeginTx starts a batch transaction
func (s *SurrealDB) BeginTx(ctx context.Context) (Transaction, error) {
	if s.db == nil {
		return nil, ErrConnection
	}
	return &surrealTx{db: s, ctx: ctx, builder: NewTxBuilder()}, nil
}

type surrealTx struct {
	db        Database
	ctx       context.Context
	builder   *TxBuilder
	committed bool
}

func (t *surrealTx) Execute(_ context.Context, query string, vars map[string]interface{}) error {
	if t.committed {
		return fmt.Errorf("%w: transaction already committed", ErrQuery)
	}
	t.builder.Add(query, vars)
	return nil
}

func (t *surrealTx) Commit() error {
	if t.committed {
		return nil
	}
	if _, err := ExecuteTransaction(t.ctx, t.db, t.builder); err != nil {
		return fmt.Errorf("%w: commit failed: %v", ErrQuery, err)
	}
	t.committed = true
	return nil
}

func (t *surrealTx) Rollback() error {
	t.builder = NewTxBuilder()
	return nil
}

// FirstRecord unwraps the first record from a Query result. A statement
// whose result is not a list (a scalar RETURN) is returned as-is.
func FirstRecord(results []interface{}) (interface{}, error) {
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	resp, ok := results[0].(map[string]interface{})
	if !ok {
		return results[0], nil
	}
	if status, _ := resp["status"].(string); !strings.EqualFold(status, "OK") {
		return results[0], nil
	}
	rows, ok := resp["result"].([]interface{})
	if !ok {
		return resp["result"], nil
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Records unwraps every record of statement i of a Query result
func Records(results []interface{}, i int) []interface{} {
	if i < 0 || i >= len(results) {
		return nil
	}
	resp, ok := results[i].(map[string]interface{})
	if !ok {
		return nil
	}
	rows, _ := resp["result"].([]interface{})
	return rows
}
