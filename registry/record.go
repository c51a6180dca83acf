// Package registry keeps the authoritative per-token records of the bridge:
// the lifecycle state machine for each token, the monotonically allocated
// identifier space, and the aggregate supply counter. The registry is the
// sole owner of token records; collaborators only reach it through the
// narrow operation surface defined here.
package registry

import (
	"time"

	"github.com/unftlabs/go-nftbridge/chain"
)

// Status is the lifecycle state of a token on this ledger.
type Status uint8

const (
	// StatusActive: the token has a live representation here.
	StatusActive Status = iota
	// StatusInTransit: the local representation is burned and an outbound
	// transfer is outstanding; a revert can still restore it.
	StatusInTransit
	// StatusBurned: terminal. The record remains as an audit trail.
	StatusBurned
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInTransit:
		return "in-transit"
	case StatusBurned:
		return "burned"
	default:
		return "unknown"
	}
}

// PendingTransfer is embedded in a record while an outbound transfer is
// outstanding. Payload holds the exact bytes handed to the gateway; a
// revert is honored only when its payload matches byte-for-byte.
type PendingTransfer struct {
	DestinationChain chain.ID             `cbor:"1,keyasint"`
	Receiver         chain.ForeignAddress `cbor:"2,keyasint"`
	InitiatedAt      int64                `cbor:"3,keyasint"`
	Payload          []byte               `cbor:"4,keyasint"`
}

// Matches reports whether the pending transfer was created for the given
// gateway payload.
func (p *PendingTransfer) Matches(payload []byte) bool {
	if p == nil || len(p.Payload) != len(payload) {
		return false
	}
	for i := range payload {
		if p.Payload[i] != payload[i] {
			return false
		}
	}
	return true
}

// TokenRecord is one minted token. Records are never deleted; Burned is
// terminal but the row survives for auditing.
type TokenRecord struct {
	TokenID   uint64
	Name      string
	Symbol    string
	URI       string
	Owner     chain.Identity
	LedgerRef chain.Identity
	Status    Status
	Pending   *PendingTransfer
}

// Clone returns a deep copy so callers can never mutate stored state.
func (r *TokenRecord) Clone() *TokenRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Pending != nil {
		p := *r.Pending
		p.Payload = append([]byte(nil), r.Pending.Payload...)
		out.Pending = &p
	}
	return &out
}

// State is the registry singleton.
type State struct {
	Authority   chain.Identity
	TotalSupply uint64
	NextTokenID uint64
}

// Initialized reports whether the one-time setup has run.
func (s State) Initialized() bool { return !s.Authority.IsZero() }

func nowUnix() int64 { return time.Now().Unix() }
