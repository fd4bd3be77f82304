package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS deployment_events (
    id TEXT PRIMARY KEY,
    target TEXT NOT NULL,
    kind TEXT NOT NULL,
    environment TEXT NOT NULL,
    action TEXT NOT NULL,
    vendor_id TEXT,
    actor TEXT,
    version INTEGER DEFAULT 0,
    at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deployment_events_target ON deployment_events(target);
`

// NewSQLiteBundle creates a Bundle backed by SQLite at the given path
func NewSQLiteBundle(dbPath string) (*Bundle, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Bundle{
		Events: &SQLiteEventStore{db: db},
		closer: db.Close,
	}, nil
}

type SQLiteEventStore struct {
	db *sql.DB
}

func (s *SQLiteEventStore) RecordEvent(event Event) (string, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO deployment_events (id, target, kind, environment, action, vendor_id, actor, version, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Target, event.Kind, event.Environment, event.Action,
		event.VendorID, event.Actor, event.Version, event.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}
	return event.ID, nil
}

func (s *SQLiteEventStore) EventsFor(target string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT id, target, kind, environment, action, vendor_id, actor, version, at
		 FROM deployment_events WHERE target = ? ORDER BY at ASC, id ASC`,
		target,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *SQLiteEventStore) LastEvent(target, environment string) (*Event, error) {
	rows, err := s.db.Query(
		`SELECT id, target, kind, environment, action, vendor_id, actor, version, at
		 FROM deployment_events WHERE target = ? AND environment = ?
		 ORDER BY at DESC, id DESC LIMIT 1`,
		target, environment,
	)
	if err != nil {
		return nil, fmt.Errorf("query last event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	event, err := scanEvent(rows)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var event Event
	var at string
	err := rows.Scan(
		&event.ID, &event.Target, &event.Kind, &event.Environment,
		&event.Action, &event.VendorID, &event.Actor, &event.Version, &at,
	)
	if err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, at); err == nil {
		event.At = parsed
	}
	return event, nil
}
