package sync

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// EventType is the kind of change a WorkQueueItem records.
type EventType string

const (
	EventChanged EventType = "changed"
	EventDeleted EventType = "deleted"
)

// Status is the processing state of a WorkQueueItem.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDeadLetter Status = "dead_letter"
)

// WorkQueueItem is one persisted row, mirroring spec §3's schema.
type WorkQueueItem struct {
	ID           int64
	Path         string
	EventType    EventType
	Status       Status
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ProcessAfter time.Time
}

// WorkQueue is the durable, upsert-keyed, debouncing queue the watch-mode
// indexer and persistent write-back layers share. It is backed by an
// embedded relational store (SQLite, WAL mode, 5s busy timeout) so
// concurrent readers/writers serialize safely without an external service.
type WorkQueue struct {
	db          *sql.DB
	debounce    time.Duration
	maxRetries  int
	baseBackoff time.Duration
}

// WorkQueueOptions configures a WorkQueue.
type WorkQueueOptions struct {
	Path        string // sqlite file path, or ":memory:"
	Debounce    time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
}

// OpenWorkQueue opens (creating if absent) the work-queue database at
// opt.Path and ensures its schema exists.
func OpenWorkQueue(opt WorkQueueOptions) (*WorkQueue, error) {
	if opt.MaxRetries <= 0 {
		opt.MaxRetries = 5
	}
	if opt.BaseBackoff <= 0 {
		opt.BaseBackoff = time.Second
	}
	dsn := opt.Path
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", opt.Path)
	} else {
		dsn = "file::memory:?cache=shared&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening work queue: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite writers serialize; avoid SQLITE_BUSY storms

	wq := &WorkQueue{db: db, debounce: opt.Debounce, maxRetries: opt.MaxRetries, baseBackoff: opt.BaseBackoff}
	if err := wq.migrate(); err != nil {
		return nil, err
	}
	if err := wq.RecoverStuck(); err != nil {
		return nil, err
	}
	return wq, nil
}

func (q *WorkQueue) migrate() error {
	_, err := q.db.Exec(`
CREATE TABLE IF NOT EXISTS work_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	process_after TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS dead_letter (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	event_type TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	last_error TEXT,
	created_at TIMESTAMP NOT NULL,
	dead_at TIMESTAMP NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("migrating work queue schema: %w", err)
	}
	return nil
}

// Enqueue upserts path: the latest call strictly supersedes any prior
// pending row for the same path, resetting status to Pending, attempts to
// zero, and process_after to now+debounce — natural deduplication.
func (q *WorkQueue) Enqueue(path string, ev EventType) error {
	now := time.Now().UTC()
	processAfter := now.Add(q.debounce)
	_, err := q.db.Exec(`
INSERT INTO work_queue (path, event_type, status, attempts, last_error, created_at, updated_at, process_after)
VALUES (?, ?, ?, 0, NULL, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	event_type = excluded.event_type,
	status = excluded.status,
	attempts = 0,
	last_error = NULL,
	updated_at = excluded.updated_at,
	process_after = excluded.process_after
`, path, string(ev), string(StatusPending), now, now, processAfter)
	if err != nil {
		return fmt.Errorf("enqueue %q: %w", path, err)
	}
	return nil
}

// FetchReady selects up to batch Pending rows whose process_after has
// elapsed, oldest first, and marks them Processing in the same
// transaction so two drainers can never claim the same row.
func (q *WorkQueue) FetchReady(batch int) ([]WorkQueueItem, error) {
	tx, err := q.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rows, err := tx.Query(`
SELECT id, path, event_type, status, attempts, COALESCE(last_error, ''), created_at, updated_at, process_after
FROM work_queue
WHERE status = ? AND process_after <= ?
ORDER BY created_at ASC
LIMIT ?
`, string(StatusPending), now, batch)
	if err != nil {
		return nil, err
	}
	var items []WorkQueueItem
	for rows.Next() {
		var it WorkQueueItem
		var status, evType string
		if err := rows.Scan(&it.ID, &it.Path, &evType, &status, &it.Attempts, &it.LastError,
			&it.CreatedAt, &it.UpdatedAt, &it.ProcessAfter); err != nil {
			rows.Close()
			return nil, err
		}
		it.EventType = EventType(evType)
		it.Status = Status(status)
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, it := range items {
		if _, err := tx.Exec(`UPDATE work_queue SET status = ?, updated_at = ? WHERE id = ?`,
			string(StatusProcessing), now, it.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Status = StatusProcessing
	}
	return items, nil
}

// Complete removes a successfully processed row.
func (q *WorkQueue) Complete(id int64) error {
	_, err := q.db.Exec(`DELETE FROM work_queue WHERE id = ?`, id)
	return err
}

// Fail records a processing failure: attempts is incremented; once it
// reaches MaxRetries the row moves to dead_letter and is removed from
// work_queue, otherwise it is rescheduled with exponential backoff.
func (q *WorkQueue) Fail(id int64, cause error) error {
	tx, err := q.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var path, evType string
	var attempts int
	var createdAt time.Time
	row := tx.QueryRow(`SELECT path, event_type, attempts, created_at FROM work_queue WHERE id = ?`, id)
	if err := row.Scan(&path, &evType, &attempts, &createdAt); err != nil {
		return err
	}
	attempts++
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	now := time.Now().UTC()

	if attempts >= q.maxRetries {
		if _, err := tx.Exec(`
INSERT INTO dead_letter (path, event_type, attempts, last_error, created_at, dead_at)
VALUES (?, ?, ?, ?, ?, ?)`, path, evType, attempts, errMsg, createdAt, now); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM work_queue WHERE id = ?`, id); err != nil {
			return err
		}
		return tx.Commit()
	}

	backoff := q.baseBackoff * time.Duration(1<<uint(attempts-1))
	if _, err := tx.Exec(`
UPDATE work_queue SET attempts = ?, last_error = ?, status = ?, updated_at = ?, process_after = ?
WHERE id = ?`, attempts, errMsg, string(StatusPending), now, now.Add(backoff), id); err != nil {
		return err
	}
	return tx.Commit()
}

// RecoverStuck resets any row left Processing (from a crash mid-flush)
// back to Pending, ready to be picked up immediately.
func (q *WorkQueue) RecoverStuck() error {
	now := time.Now().UTC()
	_, err := q.db.Exec(`UPDATE work_queue SET status = ?, process_after = ? WHERE status = ?`,
		string(StatusPending), now, string(StatusProcessing))
	return err
}

// Close closes the underlying database handle.
func (q *WorkQueue) Close() error {
	return q.db.Close()
}
