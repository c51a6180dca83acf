package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/unftlabs/go-nftbridge/chain"
	"github.com/unftlabs/go-nftbridge/registry"
)

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func() registry.Store {
		return registry.NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func() registry.Store {
		store, err := registry.OpenSQLite(":memory:")
		if err != nil {
			t.Fatalf("failed to create sqlite store: %v", err)
		}
		return store
	})
}

func runStoreTests(t *testing.T, newStore func() registry.Store) {
	ident := func(b byte) chain.Identity {
		var id chain.Identity
		for i := range id {
			id[i] = b
		}
		return id
	}

	t.Run("StateRoundTrip", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		st, err := store.State(ctx)
		if err != nil {
			t.Fatalf("state failed: %v", err)
		}
		if st.Initialized() {
			t.Fatal("fresh store must return an uninitialized state")
		}

		want := registry.State{Authority: ident(0xaa), TotalSupply: 3, NextTokenID: 17}
		if err := store.PutState(ctx, want); err != nil {
			t.Fatalf("put state failed: %v", err)
		}
		got, err := store.State(ctx)
		if err != nil {
			t.Fatalf("state failed: %v", err)
		}
		if got != want {
			t.Errorf("state round trip: got %+v, want %+v", got, want)
		}
	})

	t.Run("RecordRoundTrip", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		if _, err := store.Record(ctx, 1); !errors.Is(err, registry.ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}

		rec := &registry.TokenRecord{
			TokenID:   1,
			Name:      "Universal Ape",
			Symbol:    "UAPE",
			URI:       "ipfs://Qm1",
			Owner:     ident(0x01),
			LedgerRef: ident(0x02),
			Status:    registry.StatusInTransit,
			Pending: &registry.PendingTransfer{
				DestinationChain: 7001,
				Receiver:         chain.ForeignAddress{0xde, 0xad},
				InitiatedAt:      1724457600,
				Payload:          []byte{0x55, 0x4e, 0x01, 0x01},
			},
		}
		if err := store.PutRecord(ctx, rec); err != nil {
			t.Fatalf("put record failed: %v", err)
		}

		got, err := store.Record(ctx, 1)
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if got.Name != rec.Name || got.Symbol != rec.Symbol || got.URI != rec.URI ||
			got.Owner != rec.Owner || got.LedgerRef != rec.LedgerRef || got.Status != rec.Status {
			t.Errorf("record round trip mismatch: %+v", got)
		}
		if got.Pending == nil || !got.Pending.Matches(rec.Pending.Payload) {
			t.Errorf("pending transfer did not survive: %+v", got.Pending)
		}
		if got.Pending.DestinationChain != 7001 || got.Pending.InitiatedAt != 1724457600 {
			t.Errorf("pending fields mismatch: %+v", got.Pending)
		}

		// Overwrite clears the pending blob.
		rec.Status = registry.StatusBurned
		rec.Pending = nil
		if err := store.PutRecord(ctx, rec); err != nil {
			t.Fatalf("overwrite failed: %v", err)
		}
		got, err = store.Record(ctx, 1)
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if got.Status != registry.StatusBurned || got.Pending != nil {
			t.Errorf("overwrite did not stick: %+v", got)
		}
	})

	t.Run("RecordsOrdered", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		for _, id := range []uint64{5, 1, 3} {
			rec := &registry.TokenRecord{TokenID: id, Owner: ident(0x01), LedgerRef: ident(0x02)}
			if err := store.PutRecord(ctx, rec); err != nil {
				t.Fatalf("put record %d failed: %v", id, err)
			}
		}
		recs, err := store.Records(ctx)
		if err != nil {
			t.Fatalf("records failed: %v", err)
		}
		if len(recs) != 3 {
			t.Fatalf("expected 3 records, got %d", len(recs))
		}
		for i, want := range []uint64{1, 3, 5} {
			if recs[i].TokenID != want {
				t.Errorf("records[%d] = %d, want %d", i, recs[i].TokenID, want)
			}
		}
	})

	t.Run("ConsumePayload", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		var id [32]byte
		id[0] = 0x01

		fresh, err := store.ConsumePayload(ctx, id)
		if err != nil {
			t.Fatalf("consume failed: %v", err)
		}
		if !fresh {
			t.Fatal("first consume must report fresh")
		}

		fresh, err = store.ConsumePayload(ctx, id)
		if err != nil {
			t.Fatalf("consume failed: %v", err)
		}
		if fresh {
			t.Fatal("second consume must report duplicate")
		}

		var other [32]byte
		other[0] = 0x02
		fresh, err = store.ConsumePayload(ctx, other)
		if err != nil || !fresh {
			t.Fatalf("distinct payload id must be fresh: %v %v", fresh, err)
		}
	})

	t.Run("ReadsAreCopies", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		rec := &registry.TokenRecord{TokenID: 9, Name: "orig", Owner: ident(0x01), LedgerRef: ident(0x02)}
		if err := store.PutRecord(ctx, rec); err != nil {
			t.Fatalf("put record failed: %v", err)
		}
		got, _ := store.Record(ctx, 9)
		got.Name = "mutated"
		again, _ := store.Record(ctx, 9)
		if again.Name != "orig" {
			t.Error("store handed out an aliased record")
		}
	})
}
