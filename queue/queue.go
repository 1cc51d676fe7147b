// Package queue provides a durable, on-disk holding area for commands that arrive faster than
// the dispatcher can honor them, or that must survive a process restart before being sent.
package queue

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS queue (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	cmd        TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	sent_at    INTEGER
);
`

// Entry is one row of the outbound queue.
type Entry struct {
	ID        int64
	Cmd       string
	CreatedAt int64
	SentAt    sql.NullInt64
}

// Queue is a SQLite-backed FIFO of not-yet-sent commands.
type Queue struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and ensures its schema exists.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("queue: open %s: %w", path, err)
	}
	// The pure-Go sqlite driver serializes access internally per connection; keep exactly one
	// open so concurrent callers don't race on SQLITE_BUSY against each other needlessly.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("queue: migrate %s: %w", path, err)
	}
	return &Queue{db: db}, nil
}

// Close releases the underlying database handle.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue durably records cmd, stamped with createdAtUnix, and returns its row id.
func (q *Queue) Enqueue(cmd string, createdAtUnix int64) (int64, error) {
	res, err := q.db.Exec(`INSERT INTO queue (cmd, created_at) VALUES (?, ?)`, cmd, createdAtUnix)
	if err != nil {
		return 0, fmt.Errorf("queue: enqueue: %w", err)
	}
	return res.LastInsertId()
}

// GetUnsent returns up to limit not-yet-sent entries, oldest first.
func (q *Queue) GetUnsent(limit int) ([]Entry, error) {
	rows, err := q.db.Query(`SELECT id, cmd, created_at, sent_at FROM queue WHERE sent_at IS NULL ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("queue: get unsent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Cmd, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, fmt.Errorf("queue: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkSent stamps id as sent at sentAtUnix so it is excluded from future GetUnsent calls.
func (q *Queue) MarkSent(id int64, sentAtUnix int64) error {
	_, err := q.db.Exec(`UPDATE queue SET sent_at = ? WHERE id = ?`, sentAtUnix, id)
	if err != nil {
		return fmt.Errorf("queue: mark sent: %w", err)
	}
	return nil
}

// CountUnsent returns how many entries are still waiting to be sent.
func (q *Queue) CountUnsent() (int64, error) {
	var n int64
	err := q.db.QueryRow(`SELECT COUNT(*) FROM queue WHERE sent_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue: count unsent: %w", err)
	}
	return n, nil
}

// CountSent returns how many entries have been sent so far.
func (q *Queue) CountSent() (int64, error) {
	var n int64
	err := q.db.QueryRow(`SELECT COUNT(*) FROM queue WHERE sent_at IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue: count sent: %w", err)
	}
	return n, nil
}

