package accumulator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaves(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("price-%d", i))
	}
	return out
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestSingleLeafRootIsLeafHash(t *testing.T) {
	acc, err := New([][]byte{[]byte("only")})
	require.NoError(t, err)
	assert.Equal(t, HashLeaf([]byte("only")), acc.Root())
	assert.Equal(t, 1, acc.LeafCount())
}

func TestOddLevelDuplicatesLast(t *testing.T) {
	in := leaves(3)
	acc, err := New(in)
	require.NoError(t, err)

	h0, h1, h2 := HashLeaf(in[0]), HashLeaf(in[1]), HashLeaf(in[2])
	want := HashNode(HashNode(h0, h1), HashNode(h2, h2))
	assert.Equal(t, want, acc.Root())
}

func TestLeafAndNodeDomainsDiffer(t *testing.T) {
	var a, b Hash
	a[0], b[0] = 1, 2
	node := HashNode(a, b)
	leaf := HashLeaf(append(a[:], b[:]...))
	assert.NotEqual(t, node, leaf)
}

func TestProofsVerifyForEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 13} {
		in := leaves(n)
		acc, err := New(in)
		require.NoError(t, err)
		for i := range in {
			p, err := acc.Proof(i)
			require.NoError(t, err)
			assert.True(t, acc.Verify(p, in[i]), "n=%d i=%d", n, i)
			assert.False(t, acc.Verify(p, []byte("forged")), "n=%d i=%d", n, i)
		}
	}
}

func TestProofIndexOutOfRange(t *testing.T) {
	acc, err := New(leaves(2))
	require.NoError(t, err)
	_, err = acc.Proof(2)
	assert.True(t, errors.Is(err, ErrLeafIndex))
	_, err = acc.Proof(-1)
	assert.True(t, errors.Is(err, ErrLeafIndex))
}

func TestProofRejectsIndexPastLastLeaf(t *testing.T) {
	in := leaves(3)
	acc, err := New(in)
	require.NoError(t, err)

	p, err := acc.Proof(2)
	require.NoError(t, err)
	require.True(t, acc.Verify(p, in[2]))

	past := p
	past.Index = 3
	assert.False(t, acc.Verify(past, in[2]))
	assert.False(t, VerifyProof(acc.Root(), past, in[2]))

	widened := p
	widened.Index, widened.LeafCount = 3, 4
	assert.False(t, acc.Verify(widened, in[2]))

	short := p
	short.Siblings = p.Siblings[:1]
	assert.False(t, VerifyProof(acc.Root(), short, in[2]))
}

func TestProofDuplicatedSiblingMustBeSelf(t *testing.T) {
	in := leaves(3)
	acc, err := New(in)
	require.NoError(t, err)

	p, err := acc.Proof(2)
	require.NoError(t, err)
	forged := p
	forged.Siblings = append([]Hash(nil), p.Siblings...)
	forged.Siblings[0] = HashLeaf([]byte("other"))
	assert.False(t, VerifyProof(acc.Root(), forged, in[2]))
}

func TestProofWithRepeatedLeaves(t *testing.T) {
	in := [][]byte{[]byte("same"), []byte("same"), []byte("x")}
	acc, err := New(in)
	require.NoError(t, err)
	for i := range in {
		p, err := acc.Proof(i)
		require.NoError(t, err)
		assert.True(t, acc.Verify(p, in[i]), "i=%d", i)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	acc, err := New(leaves(5))
	require.NoError(t, err)

	b, err := acc.Serialize()
	require.NoError(t, err)
	require.Equal(t, FormatVersion, b[0])

	again, err := acc.Serialize()
	require.NoError(t, err)
	assert.Equal(t, b, again, "serialization must be deterministic")

	out, err := Deserialize(b)
	require.NoError(t, err)
	assert.True(t, acc.Equal(out))
	assert.Equal(t, acc.Root(), out.Root())
}

func TestDeserializeRejectsBadInput(t *testing.T) {
	acc, err := New(leaves(2))
	require.NoError(t, err)
	b, err := acc.Serialize()
	require.NoError(t, err)

	_, err = Deserialize(nil)
	assert.Error(t, err)

	wrongVersion := append([]byte{FormatVersion + 1}, b[1:]...)
	_, err = Deserialize(wrongVersion)
	assert.Error(t, err)

	_, err = Deserialize(b[:len(b)/2])
	assert.Error(t, err)
}

func TestDeserializeRejectsTrailingBytes(t *testing.T) {
	acc, err := New(leaves(4))
	require.NoError(t, err)
	b, err := acc.Serialize()
	require.NoError(t, err)

	_, err = Deserialize(append(append([]byte(nil), b...), 0x00, 0x01))
	assert.ErrorIs(t, err, ErrNonCanonical)

	_, err = Deserialize(append(append([]byte(nil), b...), 0x00))
	assert.Error(t, err)
}

func TestDeserializeRejectsRootMismatch(t *testing.T) {
	acc, err := New(leaves(2))
	require.NoError(t, err)

	other, err := New(leaves(3))
	require.NoError(t, err)
	otherRoot := other.Root()

	w := wireAccumulator{Root: otherRoot[:]}
	for _, h := range acc.LeafHashes() {
		w.Leaves = append(w.Leaves, append([]byte(nil), h[:]...))
	}
	body, err := marshalWire(w)
	require.NoError(t, err)

	_, err = Deserialize(body)
	assert.ErrorIs(t, err, ErrRootMismatch)
}

func TestDecoderImplementsPayloadDecoding(t *testing.T) {
	acc, err := New(leaves(4))
	require.NoError(t, err)
	b, err := acc.Serialize()
	require.NoError(t, err)

	v, err := Decoder{}.DecodePayload(b)
	require.NoError(t, err)
	got, ok := v.(*Accumulator)
	require.True(t, ok)
	assert.Equal(t, acc.Root(), got.Root())
}
