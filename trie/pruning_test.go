package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trieup/hexatrie/store/memorydb"
)

func TestCommitActuallyPrunesSupersededNodes(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)

	long := func(tag string) []byte {
		return append([]byte(tag), make([]byte, 32)...)
	}
	require.NoError(t, tr.Set([]byte("key-one"), long("v1")))
	require.NoError(t, tr.Set([]byte("key-two"), long("v2")))
	_, err = tr.Commit()
	require.NoError(t, err)
	sizeAfterFirst := db.Len()
	require.Greater(t, sizeAfterFirst, 0)

	// Overwrite key-one's value: the old leaf (and any extension/branch nodes
	// only it referenced) should be dereferenced and swept away by the Set.
	require.NoError(t, tr.Set([]byte("key-one"), long("v1-updated")))
	_, err = tr.Commit()
	require.NoError(t, err)
	// The new leaf, branch and root replace the old three one for one.
	require.Equal(t, sizeAfterFirst, db.Len())

	require.NoError(t, tr.RegenerateRefCount(true))
	for h, want := range tr.prune.refCount {
		got := tr.prune.RefCount([]byte(h))
		require.Equal(t, want, got)
	}
}

func TestRefCountMatchesRegenerateAfterDeletes(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)

	keys := [][]byte{[]byte("alpha"), []byte("alphabet"), []byte("alpine"), []byte("beta")}
	for i, k := range keys {
		require.NoError(t, tr.Set(k, append([]byte{byte(i)}, make([]byte, 40)...)))
	}
	_, err = tr.Commit()
	require.NoError(t, err)

	require.NoError(t, tr.Delete([]byte("alphabet")))
	_, err = tr.Commit()
	require.NoError(t, err)

	before := make(map[string]int, len(tr.prune.refCount))
	for h, c := range tr.prune.refCount {
		before[h] = c
	}
	require.NoError(t, tr.RegenerateRefCount(true))
	require.Equal(t, before, tr.prune.refCount)
}

func TestBeginAbortPruneLeavesStoreUntouched(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("k"), make([]byte, 40)))
	root, err := tr.Commit()
	require.NoError(t, err)
	before := db.Len()

	tr.prune.BeginPrune()
	tr.prune.Reference(root)
	tr.prune.AbortPrune()
	require.Equal(t, before, db.Len())
}
