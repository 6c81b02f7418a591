// Package identifier implements the 32-byte opaque value used for keys and
// addresses carried next to attestation envelopes.
package identifier

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/danmuck/accumwire/internal/protocol"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	Size    = 32
	HexSize = 2 * Size
)

// Identifier is 32 raw bytes. Equality, ordering and hashing are byte-wise,
// so values work as map keys and sort lexicographically.
type Identifier [Size]byte

func New(b [Size]byte) Identifier {
	return Identifier(b)
}

func (id Identifier) Bytes() [Size]byte {
	return id
}

// Hex returns 64 lowercase hex characters without a prefix.
func (id Identifier) Hex() string {
	return hex.EncodeToString(id[:])
}

// String is the display form: "0x" followed by Hex.
func (id Identifier) String() string {
	return hexutil.Encode(id[:])
}

func (id Identifier) GoString() string {
	return id.String()
}

// IsZero reports whether every byte is zero.
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// Compare orders identifiers byte-wise.
func Compare(a, b Identifier) int {
	return bytes.Compare(a[:], b[:])
}

func (id Identifier) Less(other Identifier) bool {
	return Compare(id, other) < 0
}

// FromHex decodes exactly 64 hex characters with no prefix. Mixed case is
// accepted; odd length, non-hex characters and any other length fail.
func FromHex(s string) (Identifier, error) {
	var id Identifier
	if len(s)%2 != 0 {
		return id, &protocol.HexDecodeError{Input: s, Err: hex.ErrLength}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, &protocol.HexDecodeError{Input: s, Err: err}
	}
	if len(raw) != Size {
		return id, &protocol.HexDecodeError{
			Input: s,
			Err:   fmt.Errorf("decoded %d bytes, want %d", len(raw), Size),
		}
	}
	copy(id[:], raw)
	return id, nil
}

// Parse is FromHex with an optional "0x" prefix. Surrounding whitespace is
// not trimmed.
func Parse(s string) (Identifier, error) {
	if has0xPrefix(s) {
		raw, err := hexutil.Decode(s)
		if err != nil {
			return Identifier{}, &protocol.HexDecodeError{Input: s, Err: err}
		}
		if len(raw) != Size {
			return Identifier{}, &protocol.HexDecodeError{
				Input: s,
				Err:   fmt.Errorf("decoded %d bytes, want %d", len(raw), Size),
			}
		}
		return Identifier(raw), nil
	}
	return FromHex(s)
}

func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
