package bridge

import (
	"context"
	"sync"

	"github.com/unftlabs/go-nftbridge/chain"
	"github.com/unftlabs/go-nftbridge/message"
)

// TokenLedger is the underlying token-ledger collaborator. Both operations
// must fail atomically, leaving no partial balance change; the bridge
// relies on that to compensate half-finished transfers.
type TokenLedger interface {
	Mint(ctx context.Context, ledgerRef, to chain.Identity, qty uint64) error
	Burn(ctx context.Context, ledgerRef, from chain.Identity, qty uint64) error
}

// MetadataRegistry stores display attributes. Publishing is fire-and-forget
// and not required for the bridge invariants.
type MetadataRegistry interface {
	Publish(ctx context.Context, ledgerRef chain.Identity, name, symbol, uri string) error
}

// Receipt acknowledges that the gateway accepted an outbound payload.
type Receipt struct {
	ID               string
	DestinationChain chain.ID
}

// Gateway is the external relay carrying payloads to foreign ledgers.
type Gateway interface {
	Send(ctx context.Context, dest chain.ID, receiver chain.ForeignAddress, payload []byte, revert message.RevertEnvelope) (Receipt, error)
}

// UnbackedLedger is a TokenLedger for deployments where the real ledger
// lives out of process and balance bookkeeping happens elsewhere.
type UnbackedLedger struct{}

func (UnbackedLedger) Mint(ctx context.Context, ledgerRef, to chain.Identity, qty uint64) error {
	return ctx.Err()
}

func (UnbackedLedger) Burn(ctx context.Context, ledgerRef, from chain.Identity, qty uint64) error {
	return ctx.Err()
}

// NopMetadata discards metadata publications.
type NopMetadata struct{}

func (NopMetadata) Publish(ctx context.Context, ledgerRef chain.Identity, name, symbol, uri string) error {
	return ctx.Err()
}

// SentPayload is one captured outbound send.
type SentPayload struct {
	Receipt  Receipt
	Receiver chain.ForeignAddress
	Payload  []byte
	Revert   message.RevertEnvelope
}

// CaptureGateway records outbound sends in memory. It backs the CLI (the
// operator inspects the captured payload) and tests.
type CaptureGateway struct {
	mu   sync.Mutex
	sent []SentPayload
	next int
}

func (g *CaptureGateway) Send(ctx context.Context, dest chain.ID, receiver chain.ForeignAddress, payload []byte, revert message.RevertEnvelope) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	sp := SentPayload{
		Receipt:  Receipt{ID: formatReceiptID(g.next), DestinationChain: dest},
		Receiver: receiver,
		Payload:  append([]byte(nil), payload...),
		Revert:   revert,
	}
	g.sent = append(g.sent, sp)
	return sp.Receipt, nil
}

// Sent returns copies of all captured sends in order.
func (g *CaptureGateway) Sent() []SentPayload {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SentPayload, len(g.sent))
	copy(out, g.sent)
	for i := range out {
		out[i].Payload = append([]byte(nil), g.sent[i].Payload...)
	}
	return out
}

func formatReceiptID(n int) string {
	// Zero-padded so receipts sort lexically.
	const digits = "0123456789"
	buf := []byte("send-00000000")
	for i := len(buf) - 1; n > 0 && i >= 5; i-- {
		buf[i] = digits[n%10]
		n /= 10
	}
	return string(buf)
}
