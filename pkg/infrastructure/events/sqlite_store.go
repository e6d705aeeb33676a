package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteEventStore journals events durably in a single SQLite table. Payloads are stored as JSON
// and read back as json.RawMessage.
type SQLiteEventStore struct {
	db *sql.DB
	*dispatcher
}

// Verify interface compliance
var _ EventStore = (*SQLiteEventStore)(nil)

// NewSQLiteEventStore opens (or creates) the journal at path. Use ":memory:" for a throwaway store.
func NewSQLiteEventStore(path string, logger *zap.Logger) (*SQLiteEventStore, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("open event journal %s: %w", path, err)
	}

	// one writer keeps per-stream version assignment serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	s := &SQLiteEventStore{db: db, dispatcher: newDispatcher(logger)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			position INTEGER PRIMARY KEY AUTOINCREMENT,
			stream_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			type TEXT NOT NULL,
			tenant_id TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			UNIQUE(stream_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_stream ON events(stream_id, version)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate event journal: %w", err)
		}
	}
	return nil
}

// Close releases the database handle
func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteEventStore) AppendEvent(streamID string, event Event) error {
	payload, err := json.Marshal(event.Data())
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Type(), err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) + 1 FROM events WHERE stream_id = ?`, streamID).Scan(&version); err != nil {
		return fmt.Errorf("next version for %s: %w", streamID, err)
	}

	_, err = tx.Exec(
		`INSERT INTO events (stream_id, version, type, tenant_id, data, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		streamID, version, event.Type(), event.TenantID(), string(payload), event.Timestamp().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append %s to %s: %w", event.Type(), streamID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}

	s.notify(withVersion(streamID, event, version))
	return nil
}

func (s *SQLiteEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	if fromVersion < 1 {
		fromVersion = 1
	}
	rows, err := s.db.Query(
		`SELECT stream_id, version, type, tenant_id, data, occurred_at FROM events WHERE stream_id = ? AND version >= ? ORDER BY version`,
		streamID, fromVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("read stream %s: %w", streamID, err)
	}
	return scanEvents(rows)
}

func (s *SQLiteEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	if fromPosition < 0 {
		fromPosition = 0
	}
	rows, err := s.db.Query(
		`SELECT stream_id, version, type, tenant_id, data, occurred_at FROM events WHERE position > ? ORDER BY position`,
		fromPosition,
	)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return scanEvents(rows)
}

func (s *SQLiteEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.subscribe(eventTypes, handler)
	return nil
}

func (s *SQLiteEventStore) Unsubscribe(handler EventHandler) error {
	s.unsubscribe(handler)
	return nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e          BaseEvent
			data       string
			occurredAt string
		)
		if err := rows.Scan(&e.Stream, &e.EventVersion, &e.EventType, &e.Tenant, &data, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", occurredAt, err)
		}
		e.EventTime = at
		e.EventData = json.RawMessage(data)
		events = append(events, e)
	}
	return events, rows.Err()
}
