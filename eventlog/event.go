// Package eventlog records every bridge state transition in an append-only,
// ordered journal. Each event carries a MiMC chain hash linking it to its
// predecessor, so off-chain observers can verify that the journal they read
// is complete and untampered.
package eventlog

import (
	"fmt"
	"sort"
	"time"
)

// Type names a bridge state transition.
type Type string

const (
	TokenMinted       Type = "TokenMinted"
	TransferInitiated Type = "TransferInitiated"
	TransferReceived  Type = "TransferReceived"
	TransferReverted  Type = "TransferReverted"
	TokenBurned       Type = "TokenBurned"
)

// Event is one journal entry. Seq is assigned by the log and is strictly
// increasing; ChainHash commits to the event and to PrevHash.
type Event struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	Type      Type              `json:"type"`
	TokenID   uint64            `json:"token_id"`
	Timestamp time.Time         `json:"timestamp"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	PrevHash  string            `json:"prev_hash"`
	ChainHash string            `json:"chain_hash"`
}

// Clone returns a deep copy.
func (e Event) Clone() Event {
	out := e
	if e.Attrs != nil {
		out.Attrs = make(map[string]string, len(e.Attrs))
		for k, v := range e.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// canonical returns the deterministic byte encoding hashed into the chain.
// Attrs are folded in sorted key order.
func (e Event) canonical() []byte {
	buf := make([]byte, 0, 64)
	buf = appendUint64(buf, e.Seq)
	buf = append(buf, e.Type...)
	buf = appendUint64(buf, e.TokenID)
	buf = appendUint64(buf, uint64(e.Timestamp.UTC().UnixNano()))
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf = append(buf, fmt.Sprintf("%s=%s;", k, e.Attrs[k])...)
	}
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(8*i)))
	}
	return buf
}
