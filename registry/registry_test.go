package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/unftlabs/go-nftbridge/chain"
	"github.com/unftlabs/go-nftbridge/registry"
)

var (
	authority = fill(0x0a)
	alice     = fill(0x01)
	bob       = fill(0x02)
	ledgerRef = fill(0xcc)
)

func fill(b byte) chain.Identity {
	var id chain.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(registry.NewMemoryStore())
	if err := r.Initialize(context.Background(), authority); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return r
}

func pending(payload []byte) registry.PendingTransfer {
	return registry.PendingTransfer{
		DestinationChain: 7001,
		Receiver:         chain.ForeignAddress{0xee},
		Payload:          payload,
	}
}

// supply reads TotalSupply and cross-checks it against the live record count.
func supply(t *testing.T, r *registry.Registry) uint64 {
	t.Helper()
	ctx := context.Background()
	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	recs, err := r.Records(ctx)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	var live uint64
	for _, rec := range recs {
		if rec.Status == registry.StatusActive {
			live++
		}
	}
	if live != st.TotalSupply {
		t.Fatalf("supply conservation violated: counter=%d live=%d", st.TotalSupply, live)
	}
	return st.TotalSupply
}

func TestInitialize(t *testing.T) {
	r := registry.New(registry.NewMemoryStore())
	ctx := context.Background()

	if _, err := r.AllocateID(ctx); !errors.Is(err, registry.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized before setup, got %v", err)
	}
	if err := r.Initialize(ctx, authority); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := r.Initialize(ctx, bob); !errors.Is(err, registry.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}

	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.Authority != authority || st.NextTokenID != 1 || st.TotalSupply != 0 {
		t.Errorf("unexpected initial state: %+v", st)
	}
}

func TestAllocateIDMonotonic(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	prev := uint64(0)
	for i := 0; i < 10; i++ {
		id, err := r.AllocateID(ctx)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if id <= prev {
			t.Fatalf("ids must strictly increase: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestMintNew(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	t.Run("ScenarioA", func(t *testing.T) {
		rec, err := r.MintNew(ctx, 1, alice, "Ape", "APE", "ipfs://1", ledgerRef)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if rec.Status != registry.StatusActive {
			t.Errorf("status = %v, want active", rec.Status)
		}
		if got := supply(t, r); got != 1 {
			t.Errorf("total supply = %d, want 1", got)
		}
	})

	t.Run("StaleIDConflict", func(t *testing.T) {
		if _, err := r.MintNew(ctx, 1, alice, "dup", "D", "", ledgerRef); !errors.Is(err, registry.ErrIdentifierConflict) {
			t.Fatalf("expected ErrIdentifierConflict, got %v", err)
		}
	})

	t.Run("WatermarkAdvancesPastSuppliedID", func(t *testing.T) {
		if _, err := r.MintNew(ctx, 50, bob, "jump", "J", "", ledgerRef); err != nil {
			t.Fatalf("mint: %v", err)
		}
		id, err := r.AllocateID(ctx)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if id != 51 {
			t.Errorf("next allocated id = %d, want 51", id)
		}
	})
}

func TestTransferLifecycle(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	payload := []byte{0x55, 0x4e, 0x01, 0x01, 0x99}

	if _, err := r.MintNew(ctx, 1, alice, "Ape", "APE", "ipfs://1", ledgerRef); err != nil {
		t.Fatalf("mint: %v", err)
	}

	t.Run("NotOwner", func(t *testing.T) {
		err := r.MarkInTransit(ctx, 1, bob, pending(payload))
		if !errors.Is(err, registry.ErrNotOwner) {
			t.Fatalf("expected ErrNotOwner, got %v", err)
		}
	})

	t.Run("ScenarioB", func(t *testing.T) {
		if err := r.MarkInTransit(ctx, 1, alice, pending(payload)); err != nil {
			t.Fatalf("mark in transit: %v", err)
		}
		rec, err := r.Record(ctx, 1)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.Status != registry.StatusInTransit {
			t.Errorf("status = %v, want in-transit", rec.Status)
		}
		if !rec.Pending.Matches(payload) {
			t.Error("pending payload does not match")
		}
		if rec.Pending.InitiatedAt == 0 {
			t.Error("initiated timestamp not set")
		}
		if got := supply(t, r); got != 0 {
			t.Errorf("total supply = %d, want 0 while in transit", got)
		}
	})

	t.Run("NoDoubleTransit", func(t *testing.T) {
		err := r.MarkInTransit(ctx, 1, alice, pending(payload))
		if !errors.Is(err, registry.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("ScenarioC", func(t *testing.T) {
		rec, err := r.Restore(ctx, 1)
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		if rec.Status != registry.StatusActive || rec.Pending != nil {
			t.Errorf("restore left %+v", rec)
		}
		if got := supply(t, r); got != 1 {
			t.Errorf("total supply = %d, want 1 after restore", got)
		}
	})

	t.Run("RestoreRequiresInTransit", func(t *testing.T) {
		if _, err := r.Restore(ctx, 1); !errors.Is(err, registry.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("FinalizeBurnTerminal", func(t *testing.T) {
		if err := r.MarkInTransit(ctx, 1, alice, pending(payload)); err != nil {
			t.Fatalf("mark in transit: %v", err)
		}
		if err := r.FinalizeBurn(ctx, 1); err != nil {
			t.Fatalf("finalize burn: %v", err)
		}
		rec, err := r.Record(ctx, 1)
		if err != nil {
			t.Fatalf("burned record must remain readable: %v", err)
		}
		if rec.Status != registry.StatusBurned {
			t.Errorf("status = %v, want burned", rec.Status)
		}

		// No transition is defined from Burned.
		if err := r.MarkInTransit(ctx, 1, alice, pending(payload)); !errors.Is(err, registry.ErrAlreadyBurned) {
			t.Errorf("expected ErrAlreadyBurned, got %v", err)
		}
		if _, err := r.Restore(ctx, 1); !errors.Is(err, registry.ErrAlreadyBurned) {
			t.Errorf("expected ErrAlreadyBurned, got %v", err)
		}
		if err := r.FinalizeBurn(ctx, 1); !errors.Is(err, registry.ErrAlreadyBurned) {
			t.Errorf("expected ErrAlreadyBurned, got %v", err)
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		if err := r.MarkInTransit(ctx, 404, alice, pending(payload)); !errors.Is(err, registry.ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}
	})
}

func TestRecordInbound(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	t.Run("FreshForeignID", func(t *testing.T) {
		rec, err := r.RecordInbound(ctx, 99, alice, "Visitor", "V", "ipfs://99", ledgerRef)
		if err != nil {
			t.Fatalf("record inbound: %v", err)
		}
		if rec.Status != registry.StatusActive {
			t.Errorf("status = %v, want active", rec.Status)
		}
		if got := supply(t, r); got != 1 {
			t.Errorf("total supply = %d, want 1", got)
		}
	})

	t.Run("WatermarkCoversForeignID", func(t *testing.T) {
		id, err := r.AllocateID(ctx)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if id != 100 {
			t.Errorf("allocated id = %d, want 100 (past inbound id)", id)
		}
	})

	t.Run("OverwriteActiveKeepsSupply", func(t *testing.T) {
		if _, err := r.RecordInbound(ctx, 99, bob, "Visitor", "V", "ipfs://99v2", ledgerRef); err != nil {
			t.Fatalf("record inbound: %v", err)
		}
		if got := supply(t, r); got != 1 {
			t.Errorf("total supply = %d, want 1 after overwrite", got)
		}
		rec, _ := r.Record(ctx, 99)
		if rec.Owner != bob || rec.URI != "ipfs://99v2" {
			t.Errorf("overwrite did not stick: %+v", rec)
		}
	})

	t.Run("ReturningTokenRevives", func(t *testing.T) {
		// A token that left via the outbound path comes home.
		if err := r.MarkInTransit(ctx, 99, bob, pending([]byte{1})); err != nil {
			t.Fatalf("mark in transit: %v", err)
		}
		if err := r.FinalizeBurn(ctx, 99); err != nil {
			t.Fatalf("finalize burn: %v", err)
		}
		if got := supply(t, r); got != 0 {
			t.Errorf("total supply = %d, want 0", got)
		}
		if _, err := r.RecordInbound(ctx, 99, alice, "Visitor", "V", "ipfs://99", ledgerRef); err != nil {
			t.Fatalf("record inbound: %v", err)
		}
		if got := supply(t, r); got != 1 {
			t.Errorf("total supply = %d, want 1 after revival", got)
		}
	})
}

func TestSupplyConservationSequence(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	// Interleave every operation and verify the counter matches the live
	// record count after each step; supply() fails the test on divergence.
	if _, err := r.MintNew(ctx, 1, alice, "a", "A", "", ledgerRef); err != nil {
		t.Fatal(err)
	}
	supply(t, r)
	if _, err := r.MintNew(ctx, 2, bob, "b", "B", "", ledgerRef); err != nil {
		t.Fatal(err)
	}
	supply(t, r)
	if err := r.MarkInTransit(ctx, 1, alice, pending([]byte{1})); err != nil {
		t.Fatal(err)
	}
	supply(t, r)
	if _, err := r.Restore(ctx, 1); err != nil {
		t.Fatal(err)
	}
	supply(t, r)
	if err := r.MarkInTransit(ctx, 2, bob, pending([]byte{2})); err != nil {
		t.Fatal(err)
	}
	supply(t, r)
	if err := r.FinalizeBurn(ctx, 2); err != nil {
		t.Fatal(err)
	}
	supply(t, r)
	if _, err := r.RecordInbound(ctx, 300, alice, "c", "C", "", ledgerRef); err != nil {
		t.Fatal(err)
	}
	if got := supply(t, r); got != 2 {
		t.Errorf("final supply = %d, want 2", got)
	}
}
