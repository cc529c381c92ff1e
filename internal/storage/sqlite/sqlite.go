// Package sqlite implements storage.Storage on SQLite using the pure
// Go ncruces driver, so the binary builds without cgo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/triagekit/triage/internal/storage"
	"github.com/triagekit/triage/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	seq        INTEGER
);

CREATE TABLE IF NOT EXISTS label_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	number     INTEGER NOT NULL,
	label      TEXT NOT NULL,
	action     TEXT NOT NULL,
	actor      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_label_events_item
	ON label_events(kind, number);
`

// Store implements storage.Storage
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveMessage appends one finalized conversation entry
func (s *Store) SaveMessage(ctx context.Context, msg types.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (id, role, content, created_at, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages))
	`, msg.ID, string(msg.Role), msg.Content, msg.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListMessages returns stored history in insertion order. limit <= 0
// means no limit.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]types.Message, error) {
	query := `SELECT id, role, content, created_at FROM messages ORDER BY seq`
	args := []any{}
	if limit > 0 {
		// Window to the most recent entries but keep chronological order.
		query = `SELECT id, role, content, created_at FROM (
			SELECT id, role, content, created_at, seq FROM messages
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		var role string
		var created time.Time
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = types.Role(role)
		msg.Timestamp = created
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// RecordLabelEvent appends one label audit record
func (s *Store) RecordLabelEvent(ctx context.Context, event storage.LabelEvent) error {
	if event.Action != storage.ActionAdded && event.Action != storage.ActionRemoved {
		return fmt.Errorf("invalid label event action: %s", event.Action)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO label_events (kind, number, label, action, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(event.Kind), event.Number, event.Label, event.Action, event.Actor, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("record label event: %w", err)
	}
	return nil
}

// ListLabelEvents returns recent audit records, newest first
func (s *Store) ListLabelEvents(ctx context.Context, limit int) ([]storage.LabelEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, number, label, action, actor, created_at
		FROM label_events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list label events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []storage.LabelEvent
	for rows.Next() {
		var event storage.LabelEvent
		var kind string
		if err := rows.Scan(&event.ID, &kind, &event.Number, &event.Label, &event.Action, &event.Actor, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan label event: %w", err)
		}
		event.Kind = types.Kind(kind)
		events = append(events, event)
	}
	return events, rows.Err()
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}
