package message

import (
	"bytes"
	"strings"
	"testing"
)

func foreignReceiver() []byte {
	r := make([]byte, 20)
	for i := range r {
		r[i] = byte(i + 1)
	}
	return r
}

func homeReceiver() []byte {
	r := make([]byte, 32)
	for i := range r {
		r[i] = byte(0xf0 - i)
	}
	return r
}

func TestTransferRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		transfer Transfer
	}{
		{"Basic", Transfer{
			TokenID:     1,
			Name:        "Universal Ape",
			Symbol:      "UAPE",
			URI:         "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			Receiver:    foreignReceiver(),
			SourceChain: "solana",
		}},
		{"HomeReceiver", Transfer{
			TokenID:     99,
			Name:        "Returning Token",
			Symbol:      "RT",
			URI:         "https://example.com/99.json",
			Receiver:    homeReceiver(),
			SourceChain: "ethereum",
		}},
		{"EmptyStrings", Transfer{
			TokenID:  7,
			Receiver: foreignReceiver(),
		}},
		{"ZeroTokenID", Transfer{
			TokenID:     0,
			Name:        "genesis",
			Symbol:      "G",
			URI:         "ipfs://genesis",
			Receiver:    foreignReceiver(),
			SourceChain: "solana",
		}},
		{"MaxURI", Transfer{
			TokenID:     1 << 62,
			Name:        "big",
			Symbol:      "B",
			URI:         strings.Repeat("u", maxStringLen),
			Receiver:    homeReceiver(),
			SourceChain: "solana",
		}},
		{"UnicodeMetadata", Transfer{
			TokenID:     42,
			Name:        "猿トークン",
			Symbol:      "サル",
			URI:         "ipfs://Qméè",
			Receiver:    foreignReceiver(),
			SourceChain: "solana",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := Encode(&tc.transfer)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := Decode(payload)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !got.Equal(&tc.transfer) {
				t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, tc.transfer)
			}
		})
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	t.Run("BadReceiverLength", func(t *testing.T) {
		_, err := Encode(&Transfer{TokenID: 1, Receiver: make([]byte, 19)})
		if err == nil {
			t.Fatal("expected error for 19-byte receiver")
		}
	})
	t.Run("OversizedString", func(t *testing.T) {
		_, err := Encode(&Transfer{
			TokenID:  1,
			Receiver: foreignReceiver(),
			URI:      strings.Repeat("x", maxStringLen+1),
		})
		if err == nil {
			t.Fatal("expected error for oversized uri")
		}
	})
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid, err := Encode(&Transfer{TokenID: 5, Name: "n", Symbol: "s", URI: "u", Receiver: foreignReceiver(), SourceChain: "solana"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := []struct {
		name    string
		payload []byte
	}{
		{"Empty", nil},
		{"Short", []byte{0x55}},
		{"BadMagic", append([]byte{0xde, 0xad}, valid[2:]...)},
		{"BadVersion", func() []byte {
			p := append([]byte(nil), valid...)
			p[2] = 9
			return p
		}()},
		{"UnknownKind", func() []byte {
			p := append([]byte(nil), valid...)
			p[3] = 0x7f
			return p
		}()},
		{"Truncated", valid[:len(valid)-3]},
		{"TrailingBytes", append(append([]byte(nil), valid...), 0x00)},
		{"BadReceiverLen", func() []byte {
			p := append([]byte(nil), valid...)
			p[12] = 21
			return p
		}()},
		{"ArbitraryBytes", []byte("transfer token 5 to 0xabc")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.payload)
			if err == nil {
				t.Fatalf("expected decode error, got %#v", got)
			}
			if got != nil {
				t.Fatal("decode must not return a partial result on failure")
			}
		})
	}
}

func TestRawTextKindIsDistinct(t *testing.T) {
	raw, err := EncodeRawText("restore token 5")
	if err != nil {
		t.Fatalf("encode raw: %v", err)
	}

	if _, err := Decode(raw); err == nil {
		t.Fatal("raw text payload must not decode as a transfer")
	}

	text, err := DecodeRawText(raw)
	if err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if text != "restore token 5" {
		t.Errorf("raw text round trip: %q", text)
	}

	kind, err := KindOf(raw)
	if err != nil || kind != KindRawText {
		t.Errorf("KindOf = %v, %v", kind, err)
	}

	transfer, _ := Encode(&Transfer{TokenID: 1, Receiver: foreignReceiver()})
	if _, err := DecodeRawText(transfer); err == nil {
		t.Fatal("transfer payload must not decode as raw text")
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	payload, _ := Encode(&Transfer{TokenID: 3, Receiver: foreignReceiver()})
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	saved := append([]byte(nil), got.Receiver...)
	for i := range payload {
		payload[i] = 0xff
	}
	if !bytes.Equal(got.Receiver, saved) {
		t.Error("decoded receiver aliases the input buffer")
	}
}

func TestPayloadID(t *testing.T) {
	a, _ := Encode(&Transfer{TokenID: 1, Receiver: foreignReceiver()})
	b, _ := Encode(&Transfer{TokenID: 2, Receiver: foreignReceiver()})

	if PayloadID(a) != PayloadID(a) {
		t.Error("payload id must be deterministic")
	}
	if PayloadID(a) == PayloadID(b) {
		t.Error("distinct payloads must not share an id")
	}
}
