package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/unftlabs/go-nftbridge/chain"
)

// Registry serializes all token state transitions. Every operation is a
// single atomic unit: preconditions are checked before any mutation, and the
// first failing precondition aborts with no partial state change.
type Registry struct {
	mu    sync.Mutex
	store Store
}

// New wraps a store with the registry operation surface.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Initialize runs the one-time setup, pinning the deploying authority and
// zeroing the counters. A second call fails with ErrAlreadyInitialized.
func (r *Registry) Initialize(ctx context.Context, authority chain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.store.State(ctx)
	if err != nil {
		return err
	}
	if st.Initialized() {
		return ErrAlreadyInitialized
	}
	return r.store.PutState(ctx, State{
		Authority:   authority,
		TotalSupply: 0,
		NextTokenID: 1,
	})
}

// State returns a copy of the registry singleton.
func (r *Registry) State(ctx context.Context) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadState(ctx)
}

// AllocateID returns the next token id and advances the watermark.
// Identifiers are never reused, even across burns.
func (r *Registry) AllocateID(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.loadState(ctx)
	if err != nil {
		return 0, err
	}
	id := st.NextTokenID
	st.NextTokenID++
	if err := r.store.PutState(ctx, st); err != nil {
		return 0, err
	}
	return id, nil
}

// MintNew creates an Active record under a caller-supplied id. Ids below the
// watermark fail with ErrIdentifierConflict; on success the watermark
// advances past the supplied id and the supply counter is incremented.
func (r *Registry) MintNew(ctx context.Context, tokenID uint64, owner chain.Identity, name, symbol, uri string, ledgerRef chain.Identity) (*TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if tokenID < st.NextTokenID {
		return nil, ErrIdentifierConflict
	}

	rec := &TokenRecord{
		TokenID:   tokenID,
		Name:      name,
		Symbol:    symbol,
		URI:       uri,
		Owner:     owner,
		LedgerRef: ledgerRef,
		Status:    StatusActive,
	}
	if err := r.store.PutRecord(ctx, rec); err != nil {
		return nil, err
	}

	st.NextTokenID = tokenID + 1
	st.TotalSupply++
	if err := r.store.PutState(ctx, st); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// MarkInTransit moves an Active record owned by caller to InTransit and
// decrements the supply counter: once locked for transfer the asset is gone
// from this ledger, so supply is never double-counted across chains.
func (r *Registry) MarkInTransit(ctx context.Context, tokenID uint64, caller chain.Identity, pending PendingTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.Record(ctx, tokenID)
	if err != nil {
		return err
	}
	if rec.Status == StatusBurned {
		return ErrAlreadyBurned
	}
	if rec.Status != StatusActive {
		return ErrInvalidState
	}
	if rec.Owner != caller {
		return ErrNotOwner
	}

	if pending.InitiatedAt == 0 {
		pending.InitiatedAt = nowUnix()
	}
	rec.Status = StatusInTransit
	rec.Pending = &pending
	if err := r.store.PutRecord(ctx, rec); err != nil {
		return err
	}

	st, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	st.TotalSupply--
	return r.store.PutState(ctx, st)
}

// FinalizeBurn moves an InTransit record to Burned. Irreversible; the
// supply counter was already decremented when the record left Active.
func (r *Registry) FinalizeBurn(ctx context.Context, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.Record(ctx, tokenID)
	if err != nil {
		return err
	}
	if rec.Status == StatusBurned {
		return ErrAlreadyBurned
	}
	if rec.Status != StatusInTransit {
		return ErrInvalidState
	}
	rec.Status = StatusBurned
	rec.Pending = nil
	return r.store.PutRecord(ctx, rec)
}

// Restore moves an InTransit record back to Active, clears the pending
// transfer, and re-increments the supply counter. Used only by the revert
// path.
func (r *Registry) Restore(ctx context.Context, tokenID uint64) (*TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.Record(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusBurned {
		return nil, ErrAlreadyBurned
	}
	if rec.Status != StatusInTransit {
		return nil, ErrInvalidState
	}
	rec.Status = StatusActive
	rec.Pending = nil
	if err := r.store.PutRecord(ctx, rec); err != nil {
		return nil, err
	}

	st, err := r.loadState(ctx)
	if err != nil {
		return nil, err
	}
	st.TotalSupply++
	if err := r.store.PutState(ctx, st); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// RecordInbound creates or overwrites a record as Active for a token minted
// on a foreign ledger. Foreign-issued ids are accepted as-is; the local
// watermark is advanced past them so future local mints can never collide.
// The supply counter grows only when the record was not already live here.
func (r *Registry) RecordInbound(ctx context.Context, tokenID uint64, owner chain.Identity, name, symbol, uri string, ledgerRef chain.Identity) (*TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasLive := false
	if prev, err := r.store.Record(ctx, tokenID); err == nil {
		wasLive = prev.Status == StatusActive
	} else if !errors.Is(err, ErrTokenNotFound) {
		return nil, err
	}

	rec := &TokenRecord{
		TokenID:   tokenID,
		Name:      name,
		Symbol:    symbol,
		URI:       uri,
		Owner:     owner,
		LedgerRef: ledgerRef,
		Status:    StatusActive,
	}
	if err := r.store.PutRecord(ctx, rec); err != nil {
		return nil, err
	}

	st, err := r.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if tokenID >= st.NextTokenID {
		st.NextTokenID = tokenID + 1
	}
	if !wasLive {
		st.TotalSupply++
	}
	if err := r.store.PutState(ctx, st); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Record returns a copy of one token record.
func (r *Registry) Record(ctx context.Context, tokenID uint64) (*TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Record(ctx, tokenID)
}

// Records returns copies of all records ordered by token id.
func (r *Registry) Records(ctx context.Context) ([]*TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Records(ctx)
}

// ConsumePayload atomically marks a gateway payload as processed. It
// returns false when the payload was already consumed, which callers treat
// as a duplicate delivery.
func (r *Registry) ConsumePayload(ctx context.Context, id [32]byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ConsumePayload(ctx, id)
}

func (r *Registry) loadState(ctx context.Context) (State, error) {
	st, err := r.store.State(ctx)
	if err != nil {
		return State{}, err
	}
	if !st.Initialized() {
		return State{}, ErrNotInitialized
	}
	return st, nil
}
