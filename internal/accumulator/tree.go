// Package accumulator is the Merkle accumulator carried as the opaque
// payload of an attestation envelope. Its byte format is versioned on its
// own, independent of the envelope.
package accumulator

import (
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const HashSize = 32

var (
	ErrEmpty        = errors.New("accumulator: no leaves")
	ErrLeafIndex    = errors.New("accumulator: leaf index out of range")
	ErrRootMismatch = errors.New("accumulator: root does not match leaves")
)

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// Hash is a keccak256 digest.
type Hash [HashSize]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// HashLeaf returns keccak256(0x00 || data).
func HashLeaf(data []byte) Hash {
	return keccak(leafPrefix, data)
}

// HashNode returns keccak256(0x01 || left || right).
func HashNode(left, right Hash) Hash {
	return keccak(nodePrefix, left[:], right[:])
}

func keccak(prefix byte, parts ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{prefix})
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// Accumulator is a Merkle tree over leaf hashes. An odd level duplicates
// its last node.
type Accumulator struct {
	levels [][]Hash // levels[0] are leaf hashes, last level is the root
}

// New hashes each leaf and builds the tree.
func New(leaves [][]byte) (*Accumulator, error) {
	if len(leaves) == 0 {
		return nil, ErrEmpty
	}
	hashes := make([]Hash, len(leaves))
	for i, l := range leaves {
		hashes[i] = HashLeaf(l)
	}
	return FromLeafHashes(hashes)
}

// FromLeafHashes builds the tree from already hashed leaves.
func FromLeafHashes(hashes []Hash) (*Accumulator, error) {
	if len(hashes) == 0 {
		return nil, ErrEmpty
	}
	level := append([]Hash(nil), hashes...)
	levels := [][]Hash{level}
	for len(level) > 1 {
		level = nextLevel(level)
		levels = append(levels, level)
	}
	return &Accumulator{levels: levels}, nil
}

func nextLevel(level []Hash) []Hash {
	next := make([]Hash, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}
		next[i/2] = HashNode(level[i], right)
	}
	return next
}

func (a *Accumulator) Root() Hash {
	return a.levels[len(a.levels)-1][0]
}

func (a *Accumulator) LeafCount() int {
	return len(a.levels[0])
}

// LeafHashes returns a copy of the leaf level.
func (a *Accumulator) LeafHashes() []Hash {
	return append([]Hash(nil), a.levels[0]...)
}

// Equal compares leaf sets; equal leaves imply equal roots.
func (a *Accumulator) Equal(other *Accumulator) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.LeafCount() != other.LeafCount() {
		return false
	}
	for i, h := range a.levels[0] {
		if other.levels[0][i] != h {
			return false
		}
	}
	return true
}

// Proof is the sibling path from one leaf to the root. LeafCount fixes the
// tree shape the path is checked against.
type Proof struct {
	Index     uint64
	LeafCount uint64
	Siblings  []Hash
}

func (a *Accumulator) Proof(index int) (Proof, error) {
	if index < 0 || index >= a.LeafCount() {
		return Proof{}, fmt.Errorf("%w: %d of %d", ErrLeafIndex, index, a.LeafCount())
	}
	p := Proof{Index: uint64(index), LeafCount: uint64(a.LeafCount())}
	idx := index
	for _, level := range a.levels[:len(a.levels)-1] {
		sib := idx ^ 1
		if sib >= len(level) {
			sib = idx
		}
		p.Siblings = append(p.Siblings, level[sib])
		idx /= 2
	}
	return p, nil
}

// Verify checks that leaf is committed to by a's root.
func (a *Accumulator) Verify(p Proof, leaf []byte) bool {
	if p.LeafCount != uint64(a.LeafCount()) {
		return false
	}
	return VerifyProof(a.Root(), p, leaf)
}

// VerifyProof recomputes the root from leaf and p. The path must have one
// sibling per level of a LeafCount-leaf tree, and where a level's last node
// was duplicated the sibling must be that node itself. The root does not
// commit to the leaf count, so p.LeafCount must come from a trusted source;
// Verify takes it from the accumulator.
func VerifyProof(root Hash, p Proof, leaf []byte) bool {
	if p.Index >= p.LeafCount {
		return false
	}
	node := HashLeaf(leaf)
	idx, width := p.Index, p.LeafCount
	for _, sib := range p.Siblings {
		if width <= 1 {
			return false
		}
		if idx%2 == 0 {
			if idx+1 == width && sib != node {
				return false
			}
			node = HashNode(node, sib)
		} else {
			node = HashNode(sib, node)
		}
		idx /= 2
		width = (width + 1) / 2
	}
	return width == 1 && node == root
}

// ParseHash reads a 0x-prefixed or bare 64-character hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("accumulator: parse hash: %w", err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("accumulator: parse hash: %d bytes, want %d", len(raw), HashSize)
	}
	copy(h[:], raw)
	return h, nil
}
