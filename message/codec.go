package message

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
)

// Wire layout. All integers little-endian.
//
//  0 ..1   Magic   'U''N' (0x4e55)
//  2       Version u8 (currently 1)
//  3       Kind    u8
//
// KindTransfer body:
//  4 ..11  TokenID u64
//  12      ReceiverLen u8 (20 or 32)
//  ..      Receiver bytes
//  ..      Name, Symbol, URI, SourceChain: each u16 length + bytes
//
// KindRawText body:
//  4 ..5   TextLen u16
//  ..      UTF-8 text
const (
	magicWord = uint16(0x4e55) // 'U''N'
	version   = uint8(1)

	prefixSize = 4

	// maxStringLen bounds each length-prefixed string field.
	maxStringLen = 8192
)

// Encode serializes a transfer payload.
func Encode(t *Transfer) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	size := prefixSize + 8 + 1 + len(t.Receiver) +
		2 + len(t.Name) + 2 + len(t.Symbol) + 2 + len(t.URI) + 2 + len(t.SourceChain)
	buf := make([]byte, 0, size)
	buf = appendPrefix(buf, KindTransfer)
	buf = binary.LittleEndian.AppendUint64(buf, t.TokenID)
	buf = append(buf, uint8(len(t.Receiver)))
	buf = append(buf, t.Receiver...)
	for _, s := range []string{t.Name, t.Symbol, t.URI, t.SourceChain} {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
		buf = append(buf, s...)
	}
	return buf, nil
}

// Decode parses a transfer payload. It is pure and total: on any error the
// returned transfer is nil and no partial result escapes. Trailing bytes
// after the body are rejected.
func Decode(payload []byte) (*Transfer, error) {
	kind, body, err := split(payload)
	if err != nil {
		return nil, err
	}
	if kind != KindTransfer {
		return nil, fmt.Errorf("%w: kind 0x%02x is not a transfer", ErrMalformed, uint8(kind))
	}
	if len(body) < 9 {
		return nil, fmt.Errorf("%w: truncated transfer body", ErrMalformed)
	}
	t := &Transfer{TokenID: binary.LittleEndian.Uint64(body[0:8])}
	rl := int(body[8])
	if rl != receiverForeign && rl != receiverHome {
		return nil, fmt.Errorf("%w: receiver length %d", ErrMalformed, rl)
	}
	body = body[9:]
	if len(body) < rl {
		return nil, fmt.Errorf("%w: truncated receiver", ErrMalformed)
	}
	t.Receiver = append([]byte(nil), body[:rl]...)
	body = body[rl:]

	for _, dst := range []*string{&t.Name, &t.Symbol, &t.URI, &t.SourceChain} {
		s, rest, err := readString(body)
		if err != nil {
			return nil, err
		}
		*dst = s
		body = rest
	}
	if len(body) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(body))
	}
	return t, nil
}

// EncodeRawText serializes a legacy free-form command.
func EncodeRawText(text string) ([]byte, error) {
	if len(text) > maxStringLen {
		return nil, fmt.Errorf("%w: text exceeds %d bytes", ErrSerialization, maxStringLen)
	}
	buf := make([]byte, 0, prefixSize+2+len(text))
	buf = appendPrefix(buf, KindRawText)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(text)))
	buf = append(buf, text...)
	return buf, nil
}

// DecodeRawText parses a legacy free-form command payload.
func DecodeRawText(payload []byte) (string, error) {
	kind, body, err := split(payload)
	if err != nil {
		return "", err
	}
	if kind != KindRawText {
		return "", fmt.Errorf("%w: kind 0x%02x is not raw text", ErrMalformed, uint8(kind))
	}
	s, rest, err := readString(body)
	if err != nil {
		return "", err
	}
	if len(rest) != 0 {
		return "", fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: raw text is not valid UTF-8", ErrMalformed)
	}
	return s, nil
}

// KindOf inspects the payload prefix without decoding the body.
func KindOf(payload []byte) (Kind, error) {
	kind, _, err := split(payload)
	return kind, err
}

// PayloadID derives the replay-protection key for a payload: the keccak-256
// digest of the exact bytes carried through the gateway.
func PayloadID(payload []byte) [32]byte {
	var id [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(payload)
	copy(id[:], h.Sum(nil))
	return id
}

func appendPrefix(buf []byte, kind Kind) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, magicWord)
	buf = append(buf, version, uint8(kind))
	return buf
}

func split(payload []byte) (Kind, []byte, error) {
	if len(payload) < prefixSize {
		return 0, nil, fmt.Errorf("%w: short payload", ErrMalformed)
	}
	if binary.LittleEndian.Uint16(payload[0:2]) != magicWord {
		return 0, nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	if payload[2] != version {
		return 0, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, payload[2])
	}
	kind := Kind(payload[3])
	if kind != KindTransfer && kind != KindRawText {
		return 0, nil, fmt.Errorf("%w: unknown kind 0x%02x", ErrMalformed, payload[3])
	}
	return kind, payload[prefixSize:], nil
}

func readString(body []byte) (string, []byte, error) {
	if len(body) < 2 {
		return "", nil, fmt.Errorf("%w: truncated length prefix", ErrMalformed)
	}
	n := int(binary.LittleEndian.Uint16(body[0:2]))
	if n > maxStringLen {
		return "", nil, fmt.Errorf("%w: string length %d exceeds %d", ErrMalformed, n, maxStringLen)
	}
	body = body[2:]
	if len(body) < n {
		return "", nil, fmt.Errorf("%w: truncated string", ErrMalformed)
	}
	return string(body[:n]), body[n:], nil
}
