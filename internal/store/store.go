package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// isBusyLock reports whether err indicates SQLite database lock (SQLITE_BUSY).
// Handles wrapped errors from database/sql.
func isBusyLock(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

// retryOnBusy runs fn and retries on SQLITE_BUSY with exponential backoff.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 4
	backoff := 25 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isBusyLock(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

// Event kinds.
const (
	KindAllocate = "allocate"
	KindSeed     = "seed"
	KindCollect  = "collect"
	KindSpawn    = "spawn"
	KindStop     = "stop"
)

// Event is one recorded lifecycle operation. Events are history only; nothing
// reads them back to make allocation or collection decisions.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Identity  string    `json:"identity,omitempty"`
	Volume    string    `json:"volume,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	OK        bool      `json:"ok"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	identity   TEXT NOT NULL DEFAULT '',
	volume     TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	ok         INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_identity ON events(identity);
`

// DefaultMaxOpenConns is the default connection pool size.
const DefaultMaxOpenConns = 4

// dsnWithPragmas returns a connection string with WAL, busy_timeout, and perf
// pragmas applied to every new connection.
func dsnWithPragmas(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(15000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"
}

// New opens the store. maxOpenConns controls the connection pool size (0 = default 4).
// An in-memory database is pinned to one connection, since every connection
// would otherwise see its own empty database.
func New(dbPath string, maxOpenConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	if dbPath == ":memory:" {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, logger: slog.Default()}, nil
}

// SetLogger replaces the logger used for failures that have no caller to
// return to.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordEvent inserts ev, filling in ID and CreatedAt when unset.
func (s *Store) RecordEvent(ev *Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	err := retryOnBusy(func() error {
		_, e := s.db.Exec(
			`INSERT INTO events (id, kind, identity, volume, detail, ok, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.Kind, ev.Identity, ev.Volume, ev.Detail, ev.OK, ev.CreatedAt.UTC(),
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, kind, identity, volume, detail, ok, created_at
		 FROM events ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsForIdentity returns up to limit events about one identity, newest first.
func (s *Store) EventsForIdentity(identity string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, kind, identity, volume, detail, ok, created_at
		 FROM events WHERE identity = ? ORDER BY created_at DESC LIMIT ?`, identity, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing identity events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// PruneBefore deletes events older than t and returns how many were removed.
func (s *Store) PruneBefore(t time.Time) (int64, error) {
	var result sql.Result
	err := retryOnBusy(func() error {
		var e error
		result, e = s.db.Exec(`DELETE FROM events WHERE created_at < ?`, t.UTC())
		return e
	})
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(row scannable) (*Event, error) {
	var ev Event
	if err := row.Scan(&ev.ID, &ev.Kind, &ev.Identity, &ev.Volume, &ev.Detail, &ev.OK, &ev.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// RecordSweep records one collector sweep. Insert errors are logged.
func (s *Store) RecordSweep(removed []string, sweepErr error) {
	ev := &Event{Kind: KindCollect, OK: sweepErr == nil}
	if sweepErr != nil {
		ev.Detail = sweepErr.Error()
	} else {
		ev.Detail = fmt.Sprintf("removed %d", len(removed))
		if len(removed) > 0 {
			ev.Detail += ": " + strings.Join(removed, ",")
		}
	}
	if err := s.RecordEvent(ev); err != nil {
		s.logger.Warn("store: record sweep", "error", err)
	}
}
