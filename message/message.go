// Package message implements the cross-chain transfer wire format.
//
// A payload is self-describing: a 2-byte magic, a version byte, and a kind
// tag precede the body, so a decoder can tell a transfer message apart from
// a legacy raw-text command without guessing from decode failures. Integer
// fields are little-endian; variable-length strings are length-prefixed.
package message

import (
	"errors"
	"fmt"

	"github.com/unftlabs/go-nftbridge/chain"
)

// Kind tags the payload body that follows the common prefix.
type Kind uint8

const (
	// KindTransfer is a cross-chain NFT transfer message.
	KindTransfer Kind = 0x01
	// KindRawText is a legacy free-form UTF-8 command. Kept as a distinct
	// tag so it never overlaps the transfer protocol.
	KindRawText Kind = 0x02
)

// Receiver address lengths accepted on the wire.
const (
	receiverForeign = chain.ForeignAddressSize
	receiverHome    = chain.IdentitySize
)

// Transfer is the payload carried through the gateway for one token.
// Receiver is either a 20-byte foreign address (outbound) or a 32-byte
// home identity (inbound), depending on direction.
type Transfer struct {
	TokenID     uint64
	Name        string
	Symbol      string
	URI         string
	Receiver    []byte
	SourceChain string
}

// RevertEnvelope accompanies an outbound send and tells the gateway how to
// compensate a failed delivery. It is not persisted beyond the lifetime of
// the pending transfer.
type RevertEnvelope struct {
	RevertAddress chain.Identity
	CallOnRevert  bool
	AbortAddress  chain.ForeignAddress
	RevertMessage []byte
	GasLimit      uint64
}

// Validate checks the fields a transfer must carry before encoding.
func (t *Transfer) Validate() error {
	switch len(t.Receiver) {
	case receiverForeign, receiverHome:
	default:
		return fmt.Errorf("%w: receiver must be %d or %d bytes, got %d",
			ErrSerialization, receiverForeign, receiverHome, len(t.Receiver))
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", t.Name},
		{"symbol", t.Symbol},
		{"uri", t.URI},
		{"source chain", t.SourceChain},
	} {
		if len(f.value) > maxStringLen {
			return fmt.Errorf("%w: %s exceeds %d bytes", ErrSerialization, f.name, maxStringLen)
		}
	}
	return nil
}

// Equal reports field-by-field equality, treating nil and empty receivers
// as distinct (the wire format preserves length exactly).
func (t *Transfer) Equal(o *Transfer) bool {
	if t.TokenID != o.TokenID || t.Name != o.Name || t.Symbol != o.Symbol ||
		t.URI != o.URI || t.SourceChain != o.SourceChain {
		return false
	}
	if len(t.Receiver) != len(o.Receiver) {
		return false
	}
	for i := range t.Receiver {
		if t.Receiver[i] != o.Receiver[i] {
			return false
		}
	}
	return true
}

var (
	// ErrMalformed reports a payload that does not decode as any known kind.
	ErrMalformed = errors.New("message: malformed payload")
	// ErrSerialization reports an encode failure. Unreachable for
	// well-formed transfers; callers treat it as a programmer error.
	ErrSerialization = errors.New("message: serialization failed")
)
