package eventlog

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"golang.org/x/crypto/sha3"
)

// ErrChainBroken reports a journal whose hash chain does not verify.
var ErrChainBroken = errors.New("eventlog: hash chain broken")

// genesisHash anchors the chain for the first event.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// chainHash commits to an event and its predecessor:
//
//	ChainHash = MiMC(prev, Keccak256(canonical(event)) mod r)
//
// The keccak digest is reduced into the bn254 scalar field so the MiMC
// permutation accepts it; the result is hex-encoded field-element bytes.
func chainHash(prevHex string, e Event) (string, error) {
	prev, err := hexToElement(prevHex)
	if err != nil {
		return "", err
	}

	k := sha3.NewLegacyKeccak256()
	k.Write(e.canonical())
	var dig fr.Element
	dig.SetBytes(k.Sum(nil))

	h := mimc.NewMiMC()
	if _, err := h.Write(prev.Marshal()); err != nil {
		return "", fmt.Errorf("eventlog: chain hash: %w", err)
	}
	if _, err := h.Write(dig.Marshal()); err != nil {
		return "", fmt.Errorf("eventlog: chain hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify walks a journal slice in order and checks sequence numbers and the
// hash chain. Events must start at seq 1 with the genesis anchor.
func Verify(events []Event) error {
	prev := genesisHash
	for i, e := range events {
		if e.Seq != uint64(i+1) {
			return fmt.Errorf("%w: event %d has seq %d", ErrChainBroken, i, e.Seq)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("%w: event seq %d prev hash mismatch", ErrChainBroken, e.Seq)
		}
		want, err := chainHash(prev, e)
		if err != nil {
			return err
		}
		if e.ChainHash != want {
			return fmt.Errorf("%w: event seq %d chain hash mismatch", ErrChainBroken, e.Seq)
		}
		prev = e.ChainHash
	}
	return nil
}

func hexToElement(s string) (fr.Element, error) {
	var el fr.Element
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return el, fmt.Errorf("eventlog: bad chain hash %q", s)
	}
	el.SetBytes(b)
	return el, nil
}
