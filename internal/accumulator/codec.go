package accumulator

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// ErrNonCanonical reports bytes that decode but are not the unique
// encoding of their value, such as trailing data after the body.
var ErrNonCanonical = errors.New("accumulator: non-canonical encoding")

// FormatVersion leads every serialized accumulator.
const FormatVersion byte = 1

// MaxLeaves bounds decoded accumulators; the envelope payload is at most
// 65535 bytes, so a larger leaf set cannot come off the wire anyway.
const MaxLeaves = 2048

type wireAccumulator struct {
	Root   []byte   `cramberry:"1"`
	Leaves [][]byte `cramberry:"2"`
}

// Serialize returns FormatVersion followed by the cramberry encoding of the
// root and leaf hashes. Output is deterministic.
func (a *Accumulator) Serialize() ([]byte, error) {
	root := a.Root()
	w := wireAccumulator{Root: root[:], Leaves: make([][]byte, a.LeafCount())}
	for i, h := range a.levels[0] {
		w.Leaves[i] = append([]byte(nil), h[:]...)
	}
	return marshalWire(w)
}

func marshalWire(w wireAccumulator) ([]byte, error) {
	body, err := cramberry.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("accumulator: marshal: %w", err)
	}
	return append([]byte{FormatVersion}, body...), nil
}

// Deserialize parses Serialize output. The root is recomputed from the
// leaves and must match the stored one.
func Deserialize(b []byte) (*Accumulator, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("accumulator: empty input")
	}
	if b[0] != FormatVersion {
		return nil, fmt.Errorf("accumulator: unsupported format version %d, expected %d", b[0], FormatVersion)
	}
	var w wireAccumulator
	if err := cramberry.Unmarshal(b[1:], &w); err != nil {
		return nil, fmt.Errorf("accumulator: unmarshal: %w", err)
	}
	canonical, err := cramberry.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("accumulator: marshal: %w", err)
	}
	if !bytes.Equal(canonical, b[1:]) {
		return nil, fmt.Errorf("%w: %d body bytes, canonical form is %d", ErrNonCanonical, len(b)-1, len(canonical))
	}
	if len(w.Leaves) > MaxLeaves {
		return nil, fmt.Errorf("accumulator: %d leaves exceeds limit %d", len(w.Leaves), MaxLeaves)
	}
	if len(w.Root) != HashSize {
		return nil, fmt.Errorf("accumulator: root is %d bytes, want %d", len(w.Root), HashSize)
	}
	hashes := make([]Hash, len(w.Leaves))
	for i, l := range w.Leaves {
		if len(l) != HashSize {
			return nil, fmt.Errorf("accumulator: leaf %d is %d bytes, want %d", i, len(l), HashSize)
		}
		copy(hashes[i][:], l)
	}
	acc, err := FromLeafHashes(hashes)
	if err != nil {
		return nil, err
	}
	var root Hash
	copy(root[:], w.Root)
	if acc.Root() != root {
		return nil, fmt.Errorf("%w: stored %s, computed %s", ErrRootMismatch, root, acc.Root())
	}
	return acc, nil
}

// Decoder plugs Deserialize into the frame codec.
type Decoder struct{}

func (Decoder) DecodePayload(payload []byte) (any, error) {
	return Deserialize(payload)
}
