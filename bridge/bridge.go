// Package bridge implements the cross-chain transfer protocol: the outbound
// burn-and-encode sequence, the inbound decode-and-mint sequence, and the
// revert compensation path. All ledger and relay interaction goes through
// the collaborator interfaces in this package; the registry remains the
// sole owner of token state.
package bridge

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/unftlabs/go-nftbridge/chain"
	"github.com/unftlabs/go-nftbridge/eventlog"
	"github.com/unftlabs/go-nftbridge/message"
	"github.com/unftlabs/go-nftbridge/registry"
)

// Domain separators for replay-protection keys, so an inbound transfer and
// a revert carrying identical bytes can never consume each other's id.
const (
	domainReceive = 0x01
	domainRevert  = 0x02
)

// DefaultRevertGasLimit is used when the config does not override it.
const DefaultRevertGasLimit = 100_000

// Config pins the deployment-fixed parameters of a bridge instance.
type Config struct {
	// GatewayAuthority is the single identity allowed to invoke OnReceive
	// and OnRevert. Compared by equality; no derivation machinery.
	GatewayAuthority chain.Identity

	// ChainTag names this ledger in outbound messages (e.g. "solana").
	ChainTag string

	// RevertGasLimit is carried in the revert envelope of outbound sends.
	RevertGasLimit uint64
}

// Bridge executes protocol operations against the registry and journal.
type Bridge struct {
	cfg      Config
	reg      *registry.Registry
	ledger   TokenLedger
	metadata MetadataRegistry
	gateway  Gateway
	events   *eventlog.Log
	log      *zap.Logger
}

// New assembles a bridge. A nil logger falls back to zap.NewNop.
func New(cfg Config, reg *registry.Registry, ledger TokenLedger, metadata MetadataRegistry, gw Gateway, events *eventlog.Log, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RevertGasLimit == 0 {
		cfg.RevertGasLimit = DefaultRevertGasLimit
	}
	return &Bridge{
		cfg:      cfg,
		reg:      reg,
		ledger:   ledger,
		metadata: metadata,
		gateway:  gw,
		events:   events,
		log:      logger,
	}
}

// Initialize runs the one-time registry setup.
func (b *Bridge) Initialize(ctx context.Context, authority chain.Identity) error {
	if err := b.reg.Initialize(ctx, authority); err != nil {
		return err
	}
	b.log.Info("registry initialized", zap.String("authority", authority.String()))
	return nil
}

// Mint issues a fresh token. A zero tokenID allocates the next id; a
// caller-supplied id below the watermark fails with ErrIdentifierConflict
// before any ledger interaction.
func (b *Bridge) Mint(ctx context.Context, owner chain.Identity, tokenID uint64, name, symbol, uri string) (*registry.TokenRecord, error) {
	st, err := b.reg.State(ctx)
	if err != nil {
		return nil, err
	}
	if tokenID == 0 {
		// Use the watermark directly; MintNew accepts an id at the
		// watermark and does the check-and-advance in one critical
		// section, so the id is not burned if the mint fails.
		tokenID = st.NextTokenID
	} else if tokenID < st.NextTokenID {
		return nil, registry.ErrIdentifierConflict
	}

	ledgerRef := DeriveLedgerRef(tokenID)
	if err := b.ledger.Mint(ctx, ledgerRef, owner, 1); err != nil {
		return nil, fmt.Errorf("%w: mint token %d: %v", ErrLedgerOperation, tokenID, err)
	}

	rec, err := b.reg.MintNew(ctx, tokenID, owner, name, symbol, uri, ledgerRef)
	if err != nil {
		// Compensate the ledger mint so no orphan balance survives.
		if burnErr := b.ledger.Burn(ctx, ledgerRef, owner, 1); burnErr != nil {
			b.log.Error("mint rollback failed",
				zap.Uint64("token_id", tokenID), zap.Error(burnErr))
		}
		return nil, err
	}

	if err := b.metadata.Publish(ctx, ledgerRef, name, symbol, uri); err != nil {
		// Fire-and-forget: metadata is not required for bridge invariants.
		b.log.Warn("metadata publish failed",
			zap.Uint64("token_id", tokenID), zap.Error(err))
	}

	b.emit(ctx, eventlog.TokenMinted, tokenID, map[string]string{
		"owner": owner.String(),
		"uri":   uri,
	})
	b.log.Info("token minted",
		zap.Uint64("token_id", tokenID), zap.String("owner", owner.String()))
	return rec, nil
}

// InitiateTransfer burns the local representation and hands an encoded
// transfer to the gateway. The sequence is one unit: a synchronous gateway
// failure rolls the burn and the registry transition back, so there is
// never an externally visible burn without a transfer attempt.
func (b *Bridge) InitiateTransfer(ctx context.Context, caller chain.Identity, tokenID uint64, dest chain.ID, receiver chain.ForeignAddress) (Receipt, error) {
	rec, err := b.reg.Record(ctx, tokenID)
	if err != nil {
		return Receipt{}, err
	}
	switch {
	case rec.Status == registry.StatusBurned:
		return Receipt{}, registry.ErrAlreadyBurned
	case rec.Status != registry.StatusActive:
		return Receipt{}, registry.ErrInvalidState
	case rec.Owner != caller:
		return Receipt{}, registry.ErrNotOwner
	}

	payload, err := message.Encode(&message.Transfer{
		TokenID:     tokenID,
		Name:        rec.Name,
		Symbol:      rec.Symbol,
		URI:         rec.URI,
		Receiver:    receiver[:],
		SourceChain: b.cfg.ChainTag,
	})
	if err != nil {
		return Receipt{}, err
	}

	if err := b.ledger.Burn(ctx, rec.LedgerRef, caller, 1); err != nil {
		return Receipt{}, fmt.Errorf("%w: burn token %d: %v", ErrLedgerOperation, tokenID, err)
	}

	if err := b.reg.MarkInTransit(ctx, tokenID, caller, registry.PendingTransfer{
		DestinationChain: dest,
		Receiver:         receiver,
		Payload:          payload,
	}); err != nil {
		if mintErr := b.ledger.Mint(ctx, rec.LedgerRef, caller, 1); mintErr != nil {
			b.log.Error("burn rollback failed",
				zap.Uint64("token_id", tokenID), zap.Error(mintErr))
		}
		return Receipt{}, err
	}

	receipt, err := b.gateway.Send(ctx, dest, receiver, payload, message.RevertEnvelope{
		RevertAddress: caller,
		CallOnRevert:  true,
		AbortAddress:  receiver,
		RevertMessage: payload,
		GasLimit:      b.cfg.RevertGasLimit,
	})
	if err != nil {
		b.rollbackInitiate(ctx, tokenID, rec.LedgerRef, caller)
		return Receipt{}, fmt.Errorf("%w: token %d: %v", ErrGatewaySend, tokenID, err)
	}

	b.emit(ctx, eventlog.TransferInitiated, tokenID, map[string]string{
		"destination_chain": dest.String(),
		"receiver":          receiver.String(),
		"payload_id":        hexPayloadID(domainReceive, payload),
		"receipt":           receipt.ID,
	})
	b.log.Info("transfer initiated",
		zap.Uint64("token_id", tokenID),
		zap.String("destination", dest.String()),
		zap.String("receiver", receiver.String()))
	return receipt, nil
}

// OnReceive is the gateway callback delivering a transfer minted on a
// foreign ledger. Duplicate deliveries are safe no-ops.
func (b *Bridge) OnReceive(ctx context.Context, caller chain.Identity, sender chain.ForeignAddress, payload []byte) error {
	if caller != b.cfg.GatewayAuthority {
		return ErrUnauthorized
	}

	t, err := message.Decode(payload)
	if err != nil {
		return fmt.Errorf("bridge: on receive: %w", err)
	}
	if len(t.Receiver) != chain.IdentitySize {
		return fmt.Errorf("bridge: on receive: %w: receiver is not a home identity", message.ErrMalformed)
	}
	var owner chain.Identity
	copy(owner[:], t.Receiver)

	fresh, err := b.reg.ConsumePayload(ctx, payloadKey(domainReceive, payload))
	if err != nil {
		return err
	}
	if !fresh {
		b.log.Info("duplicate inbound payload ignored",
			zap.Uint64("token_id", t.TokenID))
		return nil
	}

	ledgerRef := DeriveLedgerRef(t.TokenID)
	if err := b.ledger.Mint(ctx, ledgerRef, owner, 1); err != nil {
		return fmt.Errorf("%w: mint inbound token %d: %v", ErrLedgerOperation, t.TokenID, err)
	}

	if _, err := b.reg.RecordInbound(ctx, t.TokenID, owner, t.Name, t.Symbol, t.URI, ledgerRef); err != nil {
		return err
	}

	b.emit(ctx, eventlog.TransferReceived, t.TokenID, map[string]string{
		"sender":       sender.String(),
		"receiver":     owner.String(),
		"name":         t.Name,
		"symbol":       t.Symbol,
		"uri":          t.URI,
		"source_chain": t.SourceChain,
	})
	b.log.Info("transfer received",
		zap.Uint64("token_id", t.TokenID),
		zap.String("sender", sender.String()),
		zap.String("receiver", owner.String()))
	return nil
}

// OnRevert is the gateway callback for an outbound transfer that did not
// complete. It restores local state only when the payload unambiguously
// matches an in-transit pending transfer; in every other case it emits an
// audit event and mutates nothing, so the relay is never penalized for a
// bridge-side bookkeeping gap.
func (b *Bridge) OnRevert(ctx context.Context, caller, originalSender chain.Identity, amount *chain.Amount, payload []byte) error {
	if caller != b.cfg.GatewayAuthority {
		return ErrUnauthorized
	}

	if amount == nil {
		amount = chain.One()
	}
	attrs := map[string]string{
		"original_sender": originalSender.String(),
		"amount":          amount.Dec(),
	}

	t, err := message.Decode(payload)
	if err != nil {
		attrs["outcome"] = "malformed"
		b.emit(ctx, eventlog.TransferReverted, 0, attrs)
		b.log.Warn("revert payload did not decode", zap.Error(err))
		return nil
	}

	// Match before consuming anything: the lookup is a read, and a
	// transient store failure here must leave the payload id untouched so
	// the gateway's redelivery still works.
	rec, err := b.reg.Record(ctx, t.TokenID)
	if err != nil {
		if !errors.Is(err, registry.ErrTokenNotFound) {
			return err
		}
		attrs["outcome"] = "unmatched"
		b.emit(ctx, eventlog.TransferReverted, t.TokenID, attrs)
		b.log.Warn("revert for unknown token", zap.Uint64("token_id", t.TokenID))
		return nil
	}
	if rec.Status != registry.StatusInTransit || !rec.Pending.Matches(payload) {
		attrs["outcome"] = "unmatched"
		b.emit(ctx, eventlog.TransferReverted, t.TokenID, attrs)
		b.log.Warn("revert without matching pending transfer",
			zap.Uint64("token_id", t.TokenID))
		return nil
	}

	// Confirmed match: consume the id so concurrent duplicates restore at
	// most once, then restore.
	fresh, err := b.reg.ConsumePayload(ctx, payloadKey(domainRevert, payload))
	if err != nil {
		return err
	}
	if !fresh {
		attrs["outcome"] = "duplicate"
		b.emit(ctx, eventlog.TransferReverted, t.TokenID, attrs)
		b.log.Info("duplicate revert ignored", zap.Uint64("token_id", t.TokenID))
		return nil
	}

	if err := b.ledger.Mint(ctx, rec.LedgerRef, rec.Owner, 1); err != nil {
		return fmt.Errorf("%w: restore token %d: %v", ErrLedgerOperation, t.TokenID, err)
	}
	if _, err := b.reg.Restore(ctx, t.TokenID); err != nil {
		return err
	}

	attrs["outcome"] = "restored"
	b.emit(ctx, eventlog.TransferReverted, t.TokenID, attrs)
	b.log.Info("transfer reverted",
		zap.Uint64("token_id", t.TokenID),
		zap.String("original_sender", originalSender.String()))
	return nil
}

// FinalizeBurn confirms destination delivery and moves an in-transit token
// to its terminal state. Restricted to the registry authority.
func (b *Bridge) FinalizeBurn(ctx context.Context, caller chain.Identity, tokenID uint64) error {
	st, err := b.reg.State(ctx)
	if err != nil {
		return err
	}
	if caller != st.Authority {
		return ErrUnauthorized
	}
	if err := b.reg.FinalizeBurn(ctx, tokenID); err != nil {
		return err
	}
	b.emit(ctx, eventlog.TokenBurned, tokenID, nil)
	b.log.Info("burn finalized", zap.Uint64("token_id", tokenID))
	return nil
}

// DeriveLedgerRef deterministically derives the token-ledger account
// reference for a token id from a fixed seed, mirroring the seed-derived
// account addressing of the host ledger.
func DeriveLedgerRef(tokenID uint64) chain.Identity {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("nft_mint"))
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], tokenID)
	h.Write(le[:])
	var ref chain.Identity
	copy(ref[:], h.Sum(nil))
	return ref
}

// rollbackInitiate undoes the burn and registry transition after a
// synchronous gateway failure. Best effort: failures are logged, not
// returned, because the primary error is the send failure.
func (b *Bridge) rollbackInitiate(ctx context.Context, tokenID uint64, ledgerRef, owner chain.Identity) {
	if err := b.ledger.Mint(ctx, ledgerRef, owner, 1); err != nil {
		b.log.Error("gateway rollback: ledger re-mint failed",
			zap.Uint64("token_id", tokenID), zap.Error(err))
	}
	if _, err := b.reg.Restore(ctx, tokenID); err != nil {
		b.log.Error("gateway rollback: registry restore failed",
			zap.Uint64("token_id", tokenID), zap.Error(err))
	}
}

func (b *Bridge) emit(ctx context.Context, typ eventlog.Type, tokenID uint64, attrs map[string]string) {
	if _, err := b.events.Append(ctx, typ, tokenID, attrs); err != nil {
		b.log.Error("event append failed",
			zap.String("type", string(typ)), zap.Uint64("token_id", tokenID), zap.Error(err))
	}
}

func payloadKey(domain byte, payload []byte) [32]byte {
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, domain)
	buf = append(buf, payload...)
	return message.PayloadID(buf)
}

func hexPayloadID(domain byte, payload []byte) string {
	id := payloadKey(domain, payload)
	return hex.EncodeToString(id[:])
}
