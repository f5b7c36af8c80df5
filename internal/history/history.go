// Package history records transfer outcomes (uploads, downloads, deletes)
// in a local SQLite ledger so `cloudbox history` can show what happened
// and when, including failures that scrolled off the terminal.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Operation names for ledger rows.
const (
	OpUpload   = "upload"
	OpDownload = "download"
	OpDelete   = "delete"
)

// Outcome values for ledger rows.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry is one recorded transfer.
type Entry struct {
	ID       int64
	Op       string
	FileName string
	FileID   int64
	Size     int64
	Outcome  string
	Detail   string // error text for failed transfers, empty on success
	At       time.Time
}

// Ledger is the SQLite-backed transfer log. Sole-writer: the connection
// pool is capped at one connection.
type Ledger struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the ledger database at dbPath and runs
// pending migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Record inserts one transfer outcome. Callers treat recording as
// best-effort: a ledger write failure must never fail the transfer itself.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = l.nowFunc()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO transfers (op, file_name, file_id, size, outcome, detail, at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Op, e.FileName, e.FileID, e.Size, e.Outcome, e.Detail, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("history: recording %s of %s: %w", e.Op, e.FileName, err)
	}

	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, op, file_name, file_id, size, outcome, detail, at
			FROM transfers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying transfers: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e  Entry
			at string
		)

		if err := rows.Scan(&e.ID, &e.Op, &e.FileName, &e.FileID, &e.Size, &e.Outcome, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("history: scanning transfer row: %w", err)
		}

		parsed, parseErr := time.Parse(time.RFC3339, at)
		if parseErr != nil {
			l.logger.Warn("invalid timestamp in transfer row",
				slog.Int64("id", e.ID),
				slog.String("raw", at),
			)
		}

		e.At = parsed
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating transfer rows: %w", err)
	}

	return entries, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
