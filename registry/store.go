package registry

import (
	"context"
	"sort"
	"sync"
)

// Store persists the registry singleton, one record per token id, and the
// set of consumed gateway payloads. Implementations must return deep copies
// from reads and treat each call as atomic.
type Store interface {
	// State returns the registry singleton. A fresh store returns the
	// zero State.
	State(ctx context.Context) (State, error)

	// PutState replaces the registry singleton.
	PutState(ctx context.Context, s State) error

	// Record returns the record for a token id, or ErrTokenNotFound.
	Record(ctx context.Context, tokenID uint64) (*TokenRecord, error)

	// PutRecord creates or replaces a record.
	PutRecord(ctx context.Context, rec *TokenRecord) error

	// Records returns all records ordered by token id.
	Records(ctx context.Context) ([]*TokenRecord, error)

	// ConsumePayload atomically checks-and-inserts a payload id. It
	// returns true when the id was fresh and false when it had already
	// been consumed.
	ConsumePayload(ctx context.Context, id [32]byte) (bool, error)

	Close() error
}

// MemoryStore is the in-memory Store used by tests and single-process
// deployments without persistence.
type MemoryStore struct {
	mu       sync.Mutex
	state    State
	records  map[uint64]*TokenRecord
	consumed map[[32]byte]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[uint64]*TokenRecord),
		consumed: make(map[[32]byte]struct{}),
	}
}

func (m *MemoryStore) State(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) PutState(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}

func (m *MemoryStore) Record(ctx context.Context, tokenID uint64) (*TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[tokenID]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) PutRecord(ctx context.Context, rec *TokenRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.TokenID] = rec.Clone()
	return nil
}

func (m *MemoryStore) Records(ctx context.Context) ([]*TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*TokenRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out, nil
}

func (m *MemoryStore) ConsumePayload(ctx context.Context, id [32]byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.consumed[id]; dup {
		return false, nil
	}
	m.consumed[id] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
