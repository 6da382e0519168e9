package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// SQLiteSink persists snapshots to SQLite.
// It is suitable for single-process production use.
type SQLiteSink struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteSink opens or creates a snapshot database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			store TEXT PRIMARY KEY,
			sequence INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			data BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Save implements Sink.
func (s *SQLiteSink) Save(kind store.Kind, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO snapshots (store, sequence, saved_at, data)
		VALUES (?, COALESCE((SELECT MAX(sequence) FROM snapshots), 0) + 1, ?, ?)
		ON CONFLICT(store) DO UPDATE SET
			sequence = (SELECT MAX(sequence) FROM snapshots) + 1,
			saved_at = excluded.saved_at,
			data = excluded.data
	`, string(kind), time.Now().UTC().Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load implements Sink.
func (s *SQLiteSink) Load(kind store.Kind) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSinkClosed
	}

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE store = ?`, string(kind)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// List implements Sink.
func (s *SQLiteSink) List() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSinkClosed
	}

	rows, err := s.db.Query(`
		SELECT store, sequence, saved_at, LENGTH(data)
		FROM snapshots
		ORDER BY sequence
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var (
			info    Info
			kind    string
			savedAt string
		)
		if err := rows.Scan(&kind, &info.Sequence, &savedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		info.Store = store.Kind(kind)
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, savedAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// Delete implements Sink.
func (s *SQLiteSink) Delete(kind store.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE store = ?`, string(kind)); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close implements Sink. Closing twice is a no-op.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
