// Package sessionstore provides SQLite-backed snapshot storage for the
// terminal onboarding client.
//
// Each named session keeps one flattened questionnaire snapshot. A Session
// satisfies wizard.Store, so an engine resumes where the user left off
// across runs of the client and forgets everything after a successful
// submission.
package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS onboarding_snapshots (
	session_key TEXT PRIMARY KEY,
	snapshot    BLOB NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// Store persists questionnaire snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Session returns the snapshot slot for key.
func (s *Store) Session(key string) *Session {
	return &Session{store: s, key: key}
}

// UpdatedAt reports when key was last saved. ok is false when nothing is stored.
func (s *Store) UpdatedAt(ctx context.Context, key string) (t time.Time, ok bool, err error) {
	var millis int64
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT updated_at FROM onboarding_snapshots WHERE session_key = ?`, key,
	).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read snapshot time: %w", err)
	}
	return time.UnixMilli(millis).UTC(), true, nil
}

// Session is one named snapshot slot. It implements wizard.Store.
type Session struct {
	store *Store
	key   string
}

// Load returns the stored snapshot, or nil when nothing is saved.
func (s *Session) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.store.sqlDB.QueryRowContext(ctx,
		`SELECT snapshot FROM onboarding_snapshots WHERE session_key = ?`, s.key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// Save replaces the stored snapshot.
func (s *Session) Save(ctx context.Context, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.store.sqlDB.ExecContext(ctx,
		`INSERT INTO onboarding_snapshots (session_key, snapshot, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(session_key) DO UPDATE SET
		   snapshot = excluded.snapshot,
		   updated_at = excluded.updated_at`,
		s.key, snapshot, s.store.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Clear removes the stored snapshot. Clearing an empty slot is not an error.
func (s *Session) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.store.sqlDB.ExecContext(ctx,
		`DELETE FROM onboarding_snapshots WHERE session_key = ?`, s.key,
	); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
