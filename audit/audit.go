// Package audit provides an optional SQLite-backed record of every ID an
// EasyFlake issues, for deployments that want a local, queryable trail of
// node/timestamp/sequence allocations without standing up a separate
// time-series store.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sxyafiq/easyflake/easyflake"
)

// Log records issued IDs to a SQLite database, one row per ID, indexed for
// the two queries that matter in practice: "what did node X issue around
// time T" and "look this ID up directly".
type Log struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and ensures
// the issued_ids schema exists. Use ":memory:" for an ephemeral, in-process
// log, the same convention sqlite3 itself defines.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 serializes writers; avoid SQLITE_BUSY churn

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Log{db: db}, nil
}

// issuedAtFormat is RFC 3339 with a fixed nine-digit fraction, so stored
// issued_at values compare in time order as plain strings.
const issuedAtFormat = "2006-01-02T15:04:05.000000000Z07:00"

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS issued_ids (
			id         INTEGER PRIMARY KEY,
			node_id    INTEGER NOT NULL,
			sequence   INTEGER NOT NULL,
			issued_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_issued_ids_node_time
			ON issued_ids (node_id, issued_at);
	`)
	if err != nil {
		return fmt.Errorf("audit: creating schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record inserts one row for id, decoding its node and timestamp under
// layout. It is safe to call from multiple goroutines; sqlite3 itself
// serializes the writes.
func (l *Log) Record(ctx context.Context, id easyflake.ID, layout easyflake.BitLayout) error {
	_, node, sequence := id.Components(layout)
	issuedAt := id.Time(layout).UTC().Format(issuedAtFormat)

	_, err := l.db.ExecContext(ctx,
		"INSERT INTO issued_ids (id, node_id, sequence, issued_at) VALUES (?, ?, ?, ?)",
		id, node, sequence, issuedAt)
	if err != nil {
		return fmt.Errorf("audit: recording id %d: %w", id.Int64(), err)
	}
	return nil
}

// Entry is one row read back from the audit log.
type Entry struct {
	ID       easyflake.ID
	NodeID   int64
	Sequence int64
	IssuedAt time.Time
}

// ByNode returns the entries issued by nodeID, ordered by issue time, most
// recent first, bounded by limit.
func (l *Log) ByNode(ctx context.Context, nodeID int64, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, node_id, sequence, issued_at FROM issued_ids WHERE node_id = ? ORDER BY issued_at DESC LIMIT ?",
		nodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: querying node %d: %w", nodeID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Between returns the entries issued in [from, to), ordered by issue time.
func (l *Log) Between(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, node_id, sequence, issued_at FROM issued_ids WHERE issued_at >= ? AND issued_at < ? ORDER BY issued_at ASC",
		from.UTC().Format(issuedAtFormat), to.UTC().Format(issuedAtFormat))
	if err != nil {
		return nil, fmt.Errorf("audit: querying range [%s, %s): %w", from, to, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Lookup returns the single entry for id, or sql.ErrNoRows if it was never
// recorded.
func (l *Log) Lookup(ctx context.Context, id easyflake.ID) (Entry, error) {
	var e Entry
	var issuedAt string

	err := l.db.QueryRowContext(ctx,
		"SELECT id, node_id, sequence, issued_at FROM issued_ids WHERE id = ?", id).
		Scan(&e.ID, &e.NodeID, &e.Sequence, &issuedAt)
	if err != nil {
		return Entry{}, err
	}

	e.IssuedAt, err = time.Parse(time.RFC3339Nano, issuedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: parsing issued_at for id %d: %w", id.Int64(), err)
	}
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var issuedAt string

		if err := rows.Scan(&e.ID, &e.NodeID, &e.Sequence, &issuedAt); err != nil {
			return nil, fmt.Errorf("audit: scanning row: %w", err)
		}

		t, err := time.Parse(time.RFC3339Nano, issuedAt)
		if err != nil {
			return nil, fmt.Errorf("audit: parsing issued_at: %w", err)
		}
		e.IssuedAt = t

		entries = append(entries, e)
	}
	return entries, rows.Err()
}
