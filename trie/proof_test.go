package trie

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trieup/hexatrie/store/memorydb"
)

func buildProofTestTrie(t *testing.T) *HexaryTrie {
	t.Helper()
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("ab"), bytes.Repeat([]byte("B"), 32)))
	require.NoError(t, tr.Set([]byte("ac"), bytes.Repeat([]byte("C"), 32)))
	require.NoError(t, tr.Set([]byte("ad"), bytes.Repeat([]byte("D"), 32)))
	return tr
}

func TestProofSoundness(t *testing.T) {
	tr := buildProofTestTrie(t)
	root := tr.RootHash()
	for _, k := range [][]byte{[]byte("ab"), []byte("ac"), []byte("ad")} {
		proof, err := tr.GetProof(k)
		require.NoError(t, err)
		got, err := GetFromProof(root, k, proof)
		require.NoError(t, err)
		want, err := tr.Get(k)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestProofCompletenessForAbsence(t *testing.T) {
	tr := buildProofTestTrie(t)
	root := tr.RootHash()
	proof, err := tr.GetProof([]byte("az"))
	require.NoError(t, err)
	got, err := GetFromProof(root, []byte("az"), proof)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestProofTamperFails(t *testing.T) {
	tr := buildProofTestTrie(t)
	root := tr.RootHash()
	proof, err := tr.GetProof([]byte("ac"))
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	tampered := make(Proof, len(proof))
	for i, n := range proof {
		cp := append([]byte(nil), n...)
		tampered[i] = cp
	}
	tampered[0][0] ^= 0xFF

	_, err = GetFromProof(root, []byte("ac"), tampered)
	require.Error(t, err)
}
