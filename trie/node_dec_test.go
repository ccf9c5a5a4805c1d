package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeEncodeDecodeRoundTrip(t *testing.T) {
	leaf := &shortNode{Key: keybytesToHex([]byte("ab")), Val: valueNode("value")}
	enc := nodeToBytes(leaf)
	dec, err := decodeNode(nil, enc)
	require.NoError(t, err)
	got, ok := dec.(*shortNode)
	require.True(t, ok)
	require.Equal(t, leaf.Key, got.Key)
	require.Equal(t, leaf.Val, got.Val)
}

func TestNodeEncodeDecodeFull(t *testing.T) {
	full := &fullNode{}
	child := hashNode(cryptoKeccak([]byte("child-3")))
	full.Children[3] = child
	full.Children[16] = valueNode("branch-value")
	enc := nodeToBytes(full)
	dec, err := decodeNode(nil, enc)
	require.NoError(t, err)
	got, ok := dec.(*fullNode)
	require.True(t, ok)
	require.Equal(t, child, got.Children[3])
	require.Equal(t, valueNode("branch-value"), got.Children[16])
	require.Nil(t, got.Children[0])
}

func TestDecodeBlankIsBlankNode(t *testing.T) {
	dec, err := decodeNode(nil, nil)
	require.NoError(t, err)
	require.Nil(t, dec)
}

func TestDecodeInvalidShapeFails(t *testing.T) {
	// Start from a well-formed empty branch (a 17-element list).
	bogus := nodeToBytes(&fullNode{})
	// Corrupt the encoding by truncating its last byte: the list header then
	// claims more bytes than remain, so splitting the list fails.
	_, err := decodeNode(nil, bogus[:len(bogus)-1])
	require.Error(t, err)
}
