// Package database persists the execution audit log in sqlite. The log is
// append-only from the runner's point of view; rows are read by external
// tooling, not by this binary.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mikage/tweetrunner/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS execution_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    account_id INTEGER NOT NULL,
    log_type TEXT NOT NULL,
    message TEXT NOT NULL,
    tweet_id TEXT,
    tweet_content TEXT,
    status TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_execution_logs_run ON execution_logs(run_id);
CREATE INDEX IF NOT EXISTS idx_execution_logs_account ON execution_logs(account_id);
`

// Store is the sqlite-backed execution log.
type Store struct {
	db *sqlx.DB
}

// Open connects to the execution-log database, creating the file and
// applying the schema when needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and a busy timeout; a lagging previous run may still hold
	// the file
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddExecutionLog appends one audit row for a publish outcome and backfills
// the entry's id and timestamp.
func (s *Store) AddExecutionLog(ctx context.Context, entry *models.ExecutionLog) error {
	query := `
		INSERT INTO execution_logs (run_id, account_id, log_type, message, tweet_id, tweet_content, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		entry.RunID,
		entry.AccountID,
		entry.LogType,
		entry.Message,
		entry.TweetID,
		entry.TweetContent,
		entry.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to add execution log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	entry.CreatedAt = now
	return nil
}
