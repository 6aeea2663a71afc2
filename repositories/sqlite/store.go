// Package sqlite stores the feedback log in a single SQLite file using the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/upb/math-agent/config"
	"github.com/upb/math-agent/repositories"
)

const schema = `
	CREATE TABLE IF NOT EXISTS feedback_records (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		solution TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comments TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_records_created_at ON feedback_records(created_at);
`

// Store owns the SQLite handle
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewStore opens (creating if needed) the database at path and applies the schema
func NewStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("sqlite feedback store opened", zap.String("path", path))

	return &Store{db: db, path: path, logger: logger}, nil
}

// DB returns the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *Store) Close() error {
	s.logger.Info("closing sqlite feedback store", zap.String("path", s.path))
	return s.db.Close()
}

// Open returns repositories backed by the SQLite file at path
func Open(ctx context.Context, path string, logger *zap.Logger) (*repositories.Repositories, error) {
	store, err := NewStore(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	return repositories.NewRepositories(config.FeedbackStoreSQLite, NewFeedbackRepository(store.DB(), logger), store.Close), nil
}
