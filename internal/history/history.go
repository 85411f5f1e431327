// Package history is an optional sqlite-backed journal of applied
// events and the status each one produced. It exists for debugging a
// misbehaving service after the fact; the adapter never reads it back
// at startup.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"notifyadapter/internal/notify"
	"notifyadapter/internal/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	at      TEXT NOT NULL,
	event   TEXT NOT NULL,
	healthz INTEGER NOT NULL,
	livez   INTEGER NOT NULL,
	readyz  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_at ON events(at);
`

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Entry is one journal row, newest first in Recent results.
type Entry struct {
	At      time.Time `json:"at"`
	Event   string    `json:"event"`
	Healthz bool      `json:"healthz"`
	Livez   bool      `json:"livez"`
	Readyz  bool      `json:"readyz"`
}

func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db %s: %w", path, err)
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history db: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "history").Logger()}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one applied event. Best effort: journal failures are
// logged, never propagated into event processing.
func (s *Store) Append(ev notify.Event, snap state.Snapshot) {
	if s == nil || s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(at, event, healthz, livez, readyz) VALUES(?,?,?,?,?)`,
		snap.Timestamp.Format(time.RFC3339Nano), string(ev), snap.Healthz, snap.Livez, snap.Readyz,
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to journal event")
	}
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, event, healthz, livez, readyz FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e  Entry
			at string
		)
		if err := rows.Scan(&at, &e.Event, &e.Healthz, &e.Livez, &e.Readyz); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
