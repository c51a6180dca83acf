package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"

	"github.com/unftlabs/go-nftbridge/chain"
)

// SQLiteStore persists registry state in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite registry store and applies
// the schema. Pass ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("registry: store path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: ping sqlite db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS registry_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		authority BLOB NOT NULL,
		total_supply INTEGER NOT NULL,
		next_token_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tokens (
		token_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		uri TEXT NOT NULL,
		owner BLOB NOT NULL,
		ledger_ref BLOB NOT NULL,
		status INTEGER NOT NULL,
		pending BLOB
	);

	CREATE TABLE IF NOT EXISTS consumed_payloads (
		payload_id BLOB PRIMARY KEY
	);

	CREATE INDEX IF NOT EXISTS idx_tokens_status ON tokens(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) State(ctx context.Context) (State, error) {
	var (
		st        State
		authority []byte
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT authority, total_supply, next_token_id FROM registry_state WHERE id = 1`)
	err := row.Scan(&authority, &st.TotalSupply, &st.NextTokenID)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("registry: load state: %w", err)
	}
	copy(st.Authority[:], authority)
	return st, nil
}

func (s *SQLiteStore) PutState(ctx context.Context, st State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_state (id, authority, total_supply, next_token_id)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			authority = excluded.authority,
			total_supply = excluded.total_supply,
			next_token_id = excluded.next_token_id`,
		st.Authority[:], st.TotalSupply, st.NextTokenID)
	if err != nil {
		return fmt.Errorf("registry: store state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Record(ctx context.Context, tokenID uint64) (*TokenRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token_id, name, symbol, uri, owner, ledger_ref, status, pending
		FROM tokens WHERE token_id = ?`, tokenID)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: load record %d: %w", tokenID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) PutRecord(ctx context.Context, rec *TokenRecord) error {
	var pending []byte
	if rec.Pending != nil {
		b, err := cbor.Marshal(rec.Pending)
		if err != nil {
			return fmt.Errorf("registry: encode pending transfer: %w", err)
		}
		pending = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (token_id, name, symbol, uri, owner, ledger_ref, status, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_id) DO UPDATE SET
			name = excluded.name,
			symbol = excluded.symbol,
			uri = excluded.uri,
			owner = excluded.owner,
			ledger_ref = excluded.ledger_ref,
			status = excluded.status,
			pending = excluded.pending`,
		rec.TokenID, rec.Name, rec.Symbol, rec.URI,
		rec.Owner[:], rec.LedgerRef[:], rec.Status, pending)
	if err != nil {
		return fmt.Errorf("registry: store record %d: %w", rec.TokenID, err)
	}
	return nil
}

func (s *SQLiteStore) Records(ctx context.Context) ([]*TokenRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token_id, name, symbol, uri, owner, ledger_ref, status, pending
		FROM tokens ORDER BY token_id`)
	if err != nil {
		return nil, fmt.Errorf("registry: list records: %w", err)
	}
	defer rows.Close()

	var out []*TokenRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("registry: scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ConsumePayload(ctx context.Context, id [32]byte) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO consumed_payloads (payload_id) VALUES (?)`, id[:])
	if err != nil {
		return false, fmt.Errorf("registry: consume payload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("registry: consume payload: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanRecord(scan func(dest ...any) error) (*TokenRecord, error) {
	var (
		rec       TokenRecord
		owner     []byte
		ledgerRef []byte
		pending   []byte
	)
	if err := scan(&rec.TokenID, &rec.Name, &rec.Symbol, &rec.URI,
		&owner, &ledgerRef, &rec.Status, &pending); err != nil {
		return nil, err
	}
	if len(owner) != chain.IdentitySize || len(ledgerRef) != chain.IdentitySize {
		return nil, fmt.Errorf("corrupt identity column")
	}
	copy(rec.Owner[:], owner)
	copy(rec.LedgerRef[:], ledgerRef)
	if len(pending) > 0 {
		var p PendingTransfer
		if err := cbor.Unmarshal(pending, &p); err != nil {
			return nil, fmt.Errorf("decode pending transfer: %w", err)
		}
		rec.Pending = &p
	}
	return &rec, nil
}

var _ Store = (*SQLiteStore)(nil)
