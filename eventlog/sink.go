package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"
)

// Sink is the journal's storage backend. Events arrive in sequence order
// and are never rewritten.
type Sink interface {
	Append(ctx context.Context, e Event) error
	Events(ctx context.Context) ([]Event, error)
	Close() error
}

// MemorySink keeps the journal in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Append(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e.Clone())
	return nil
}

func (m *MemorySink) Events(ctx context.Context) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	for i, e := range m.events {
		out[i] = e.Clone()
	}
	return out, nil
}

func (m *MemorySink) Close() error { return nil }

// SQLiteSink persists the journal in SQLite.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite journal.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("eventlog: journal path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventlog: ping journal: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		token_id INTEGER NOT NULL,
		ts_unix_ns INTEGER NOT NULL,
		attrs BLOB,
		prev_hash TEXT NOT NULL,
		chain_hash TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_token ON events(token_id);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventlog: migrate journal: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Append(ctx context.Context, e Event) error {
	var attrs []byte
	if len(e.Attrs) > 0 {
		b, err := cbor.Marshal(e.Attrs)
		if err != nil {
			return fmt.Errorf("eventlog: encode attrs: %w", err)
		}
		attrs = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (seq, id, type, token_id, ts_unix_ns, attrs, prev_hash, chain_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Seq, e.ID, string(e.Type), e.TokenID, e.Timestamp.UTC().UnixNano(),
		attrs, e.PrevHash, e.ChainHash)
	if err != nil {
		return fmt.Errorf("eventlog: append seq %d: %w", e.Seq, err)
	}
	return nil
}

func (s *SQLiteSink) Events(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, type, token_id, ts_unix_ns, attrs, prev_hash, chain_hash
		FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("eventlog: list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e     Event
			typ   string
			tsNS  int64
			attrs []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &e.TokenID, &tsNS, &attrs, &e.PrevHash, &e.ChainHash); err != nil {
			return nil, fmt.Errorf("eventlog: scan event: %w", err)
		}
		e.Type = Type(typ)
		e.Timestamp = time.Unix(0, tsNS).UTC()
		if len(attrs) > 0 {
			if err := cbor.Unmarshal(attrs, &e.Attrs); err != nil {
				return nil, fmt.Errorf("eventlog: decode attrs: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var (
	_ Sink = (*MemorySink)(nil)
	_ Sink = (*SQLiteSink)(nil)
)
