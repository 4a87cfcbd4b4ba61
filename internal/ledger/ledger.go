// Package ledger records which messages have already been queued. The
// mailbox label state is the real idempotency source; the ledger only
// bridges the window between enqueue and the worker's label/read update,
// which the Outlook poll filter cannot express.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"autorespond/internal/domain"
)

type Ledger struct {
	db *sql.DB
}

func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout = 5000;")

	schema := `
CREATE TABLE IF NOT EXISTS processed (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider TEXT NOT NULL,
    message_id TEXT NOT NULL,
    label TEXT,
    job_id TEXT,
    created_at INTEGER,
    UNIQUE(provider, message_id)
);
`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Seen reports whether a job was already enqueued for this message.
func (l *Ledger) Seen(provider domain.Provider, messageID string) (bool, error) {
	row := l.db.QueryRow(
		`SELECT 1 FROM processed WHERE provider = ? AND message_id = ? LIMIT 1`,
		provider, messageID,
	)
	var dummy int
	err := row.Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Record marks a message as queued. Re-recording the same message is a
// no-op.
func (l *Ledger) Record(provider domain.Provider, messageID string, label domain.Label, jobID string) error {
	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO processed (provider, message_id, label, job_id, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		provider, messageID, label, jobID, time.Now().Unix(),
	)
	return err
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
