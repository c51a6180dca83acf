// Package chain defines the identity and value types shared by the bridge
// core: home-ledger identities, foreign-chain addresses, chain identifiers,
// and 256-bit amounts as delivered by EVM-side gateways.
package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// IdentitySize is the byte length of a home-ledger identity.
const IdentitySize = 32

// ForeignAddressSize is the byte length of an EVM-style foreign address.
const ForeignAddressSize = 20

var (
	ErrInvalidIdentity = errors.New("chain: invalid identity")
	ErrInvalidAddress  = errors.New("chain: invalid foreign address")
	ErrInvalidAmount   = errors.New("chain: invalid amount")
)

// Identity is a 32-byte home-ledger account identifier.
type Identity [IdentitySize]byte

// ForeignAddress is a 20-byte address on a foreign ledger.
type ForeignAddress [ForeignAddressSize]byte

// ID identifies a destination ledger for outbound transfers.
type ID uint64

// Amount is a 256-bit value. Gateways on EVM chains report deposited
// quantities as 256-bit integers even though the bridge always moves a
// single unit per operation.
type Amount = uint256.Int

// ParseIdentity decodes a hex-encoded 32-byte identity. A 0x prefix is
// accepted and ignored.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if len(b) != IdentitySize {
		return id, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidIdentity, IdentitySize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParseForeignAddress decodes a hex-encoded 20-byte address.
func ParseForeignAddress(s string) (ForeignAddress, error) {
	var addr ForeignAddress
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != ForeignAddressSize {
		return addr, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, ForeignAddressSize, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// ParseAmount decodes a decimal or 0x-prefixed hex amount.
func ParseAmount(s string) (*Amount, error) {
	v := new(uint256.Int)
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		err = v.SetFromHex(s)
	} else {
		err = v.SetFromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return v, nil
}

// One is the amount moved by every bridge operation.
func One() *Amount { return uint256.NewInt(1) }

func (id Identity) String() string { return "0x" + hex.EncodeToString(id[:]) }

// IsZero reports whether the identity is all zeroes (unset).
func (id Identity) IsZero() bool { return id == Identity{} }

func (a ForeignAddress) String() string { return "0x" + hex.EncodeToString(a[:]) }

// IsZero reports whether the address is all zeroes.
func (a ForeignAddress) IsZero() bool { return a == ForeignAddress{} }

func (c ID) String() string { return fmt.Sprintf("chain-%d", uint64(c)) }
