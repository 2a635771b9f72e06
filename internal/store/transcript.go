// Package store persists conversation transcripts to SQLite for
// debugging and audit. Table data itself is deliberately not persisted;
// only what was said and which tools ran.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ademiltonnunes/quill-project/internal/tools"
)

// Transcript records conversation turns and tool executions.
type Transcript struct {
	db *sql.DB
}

// Open opens (and creates if needed) the transcript database at path and
// ensures required tables exist.
func Open(ctx context.Context, path string) (*Transcript, error) {
	if path == "" {
		return nil, fmt.Errorf("transcript path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pragmas := []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(pctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	db.SetMaxOpenConns(1)

	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Transcript{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tool_executions (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			tool_id    TEXT,
			tool_name  TEXT NOT NULL,
			arguments  JSON,
			ok         INTEGER NOT NULL,
			message    TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS messages_session_idx ON messages(session_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS tool_executions_session_idx ON tool_executions(session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap transcript db: %w", err)
		}
	}
	return nil
}

// RecordMessage appends one conversation message.
func (t *Transcript) RecordMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, role, content, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// RecordToolExecution appends one tool execution outcome.
func (t *Transcript) RecordToolExecution(ctx context.Context, sessionID string, call tools.Call, ok bool, message string) error {
	okInt := 0
	if ok {
		okInt = 1
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO tool_executions (id, session_id, tool_id, tool_name, arguments, ok, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, call.ID, call.Name, call.ArgumentsJSON, okInt, message,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record tool execution: %w", err)
	}
	return nil
}

// MessageCount returns the number of messages recorded for a session.
func (t *Transcript) MessageCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (t *Transcript) Close() error {
	return t.db.Close()
}
