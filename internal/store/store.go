// Package store persists faustpilot state in a single sqlite database:
// doc chunks with embeddings for retrieval, and generation attempts for
// later inspection.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"faustpilot/internal/logging"
)

// LocalStore is the sqlite-backed store. All methods are safe for
// concurrent use.
type LocalStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies
// migrations.
func Open(path string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &LocalStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logging.For(logging.CategoryStore).Debugw("store opened", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *LocalStore) Path() string { return s.path }

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS doc_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		library TEXT NOT NULL,
		heading TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_doc_chunks_library ON doc_chunks(library)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		session TEXT NOT NULL,
		seq INTEGER NOT NULL,
		request TEXT NOT NULL,
		code TEXT NOT NULL,
		valid INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session, seq)`,
}

func (s *LocalStore) migrate() error {
	for i, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
